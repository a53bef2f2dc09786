// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

// Role is a string specifying a database connection role. Each role
// has a set of granted privileges which indicates which operations
// may be performed after using it for connecting to a database.
type Role string

// These constants specify the expected database roles. The AdminRole
// must exist beforehand (i.e., must be created manually) and must be
// privileged enough to create the other role, the schema, and the
// btree_gist extension during the `rentacar db init` bootstrap.
const (
	// AdminRole is an administrator (super user) role which is only
	// used by the `db init` bootstrap command for creation of the
	// schema, the constraints, and the normal role.
	AdminRole Role = "admin"

	// NormalRole is a normal (unprivilged) role which serves all
	// booking, search, and payment reconciliation use cases of the
	// web server.
	NormalRole Role = "rentacar"
)
