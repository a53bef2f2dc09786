// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package postgres adapts the core repo.Pool, repo.Conn, and repo.Tx
// interfaces to a PostgreSQL DBMS using the GORM framework. Nested
// packages adapt the individual repository ports; the schema package
// holds the database bootstrap which the `rentacar db init` command
// runs.
package postgres

// SchemaVersion is the current database schema version, recorded by
// the bootstrap and checked by nothing else yet; it exists so a future
// schema change has an anchor to compare against.
const SchemaVersion = 1
