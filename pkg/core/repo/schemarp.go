// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"

	"github.com/momeni/rentacar/pkg/core/scram"
)

// SchemaTxQueryer lists the database bootstrap operations which the
// `rentacar db init` command performs. They run with the AdminRole
// connection and must be wrapped in a transaction, so a half-failed
// bootstrap leaves nothing behind.
type SchemaTxQueryer interface {
	// InitSchema creates the rentacar tables, indices, and constraints
	// including the reservations exclusion constraint (and the
	// btree_gist extension which it requires). It is idempotent with
	// respect to an already initialized database.
	InitSchema(ctx context.Context) error

	// SetupRole ensures that the role database role exists, grants it
	// the privileges which the web server needs, and sets its password
	// to the scram hash of pass computed by the hasher (so the
	// plaintext password never appears in a DDL statement which might
	// be logged).
	SetupRole(ctx context.Context, role Role, pass string, hasher scram.Hasher) error
}

// Schema is the factory port of the bootstrap queryer.
type Schema interface {
	Tx(Tx) SchemaTxQueryer
}
