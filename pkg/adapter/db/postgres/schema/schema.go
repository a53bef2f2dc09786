// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package schema provides the database bootstrap which the
// `rentacar db init` command runs: creation of the btree_gist
// extension, the tables with their check and exclusion constraints,
// and the unprivileged role which the web server connects with.
// All statements are idempotent, so rerunning the bootstrap against
// an initialized database is harmless.
package schema

import (
	"context"
	"fmt"

	"github.com/momeni/rentacar/pkg/adapter/db/postgres"
	"github.com/momeni/rentacar/pkg/core/repo"
	"github.com/momeni/rentacar/pkg/core/scram"
)

type Repo struct {
}

func New() *Repo {
	return &Repo{}
}

type txQueryer struct {
	*postgres.Tx
}

func (schema *Repo) Tx(tx repo.Tx) repo.SchemaTxQueryer {
	tt := tx.(*postgres.Tx)
	return txQueryer{Tx: tt}
}

// ddl holds the complete schema. The reservations exclusion
// constraint is the storage-level backstop of the booking conflict
// rule: no two pending/confirmed rows of one vehicle may carry
// overlapping [pickup_at, return_at) ranges, no matter which code
// path tries to insert them. The relocation buffer rule is wider than
// a range overlap and is enforced by the use cases layer under the
// per-vehicle advisory lock.
const ddl = `
CREATE EXTENSION IF NOT EXISTS btree_gist;

CREATE TABLE IF NOT EXISTS locations (
    lid uuid PRIMARY KEY,
    name varchar(128) NOT NULL,
    address varchar(256) NOT NULL DEFAULT '',
    active boolean NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS vehicles (
    vid uuid PRIMARY KEY,
    name varchar(128) NOT NULL,
    plate varchar(16) NOT NULL UNIQUE,
    location_id uuid NOT NULL REFERENCES locations (lid),
    daily_1_3 bigint NOT NULL,
    daily_4_7 bigint NOT NULL,
    daily_8_14 bigint NOT NULL,
    daily_15_plus bigint NOT NULL
);

CREATE TABLE IF NOT EXISTS reservations (
    rid uuid PRIMARY KEY,
    code varchar(16) NOT NULL UNIQUE,
    vehicle_id uuid NOT NULL REFERENCES vehicles (vid),
    pickup_location_id uuid NOT NULL REFERENCES locations (lid),
    return_location_id uuid NOT NULL REFERENCES locations (lid),
    pickup_at timestamptz NOT NULL,
    return_at timestamptz NOT NULL,
    customer_name varchar(64) NOT NULL,
    customer_last_name varchar(64) NOT NULL,
    customer_email varchar(128) NOT NULL,
    customer_phone varchar(32) NOT NULL,
    notes text NOT NULL DEFAULT '',
    day_count integer NOT NULL CHECK (day_count >= 1),
    total_amount bigint NOT NULL CHECK (total_amount > 0),
    currency char(3) NOT NULL,
    status varchar(16) NOT NULL CHECK (
        status IN ('pending', 'confirmed', 'cancelled', 'completed')
    ),
    payment_status varchar(16) NOT NULL CHECK (
        payment_status IN ('unpaid', 'paid', 'failed', 'refunded')
    ),
    payment_session_id varchar(128) NOT NULL DEFAULT '',
    payment_ref varchar(128) NOT NULL DEFAULT '',
    created_at timestamptz NOT NULL,
    confirmed_at timestamptz,
    cancelled_at timestamptz,
    CHECK (pickup_at < return_at),
    CONSTRAINT reservations_no_overlap EXCLUDE USING gist (
        vehicle_id WITH =,
        tstzrange(pickup_at, return_at) WITH &&
    ) WHERE (status IN ('pending', 'confirmed'))
);

CREATE INDEX IF NOT EXISTS reservations_vehicle_idx
    ON reservations (vehicle_id);

CREATE TABLE IF NOT EXISTS holds (
    hid uuid PRIMARY KEY,
    vehicle_id uuid NOT NULL REFERENCES vehicles (vid),
    pickup_location_id uuid NOT NULL REFERENCES locations (lid),
    return_location_id uuid NOT NULL REFERENCES locations (lid),
    pickup_at timestamptz NOT NULL,
    return_at timestamptz NOT NULL,
    customer_name varchar(64) NOT NULL,
    customer_last_name varchar(64) NOT NULL,
    customer_email varchar(128) NOT NULL,
    customer_phone varchar(32) NOT NULL,
    notes text NOT NULL DEFAULT '',
    day_count integer NOT NULL CHECK (day_count >= 1),
    total_amount bigint NOT NULL CHECK (total_amount > 0),
    currency char(3) NOT NULL,
    payment_session_id varchar(128) NOT NULL DEFAULT '',
    created_at timestamptz NOT NULL,
    expires_at timestamptz NOT NULL,
    CHECK (pickup_at < return_at)
);

CREATE INDEX IF NOT EXISTS holds_vehicle_idx ON holds (vehicle_id);
CREATE INDEX IF NOT EXISTS holds_expiry_idx ON holds (expires_at);

CREATE TABLE IF NOT EXISTS payment_events (
    event_id varchar(128) PRIMARY KEY,
    applied_at timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_info (
    version integer NOT NULL
);
`

// InitSchema creates the extension, tables, indices, and constraints,
// recording the current schema version.
func (tq txQueryer) InitSchema(ctx context.Context) error {
	if _, err := tq.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	_, err := tq.Exec(ctx, fmt.Sprintf(`
INSERT INTO schema_info (version)
SELECT %d WHERE NOT EXISTS (SELECT 1 FROM schema_info)`,
		postgres.SchemaVersion,
	))
	if err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}

// SetupRole ensures existence of the role database role, sets its
// password to the scram hash computed by hasher (so the plaintext
// password never reaches the DBMS logs), and grants the privileges
// which the web server needs. The role name comes from the fixed
// repo.Role constants, hence, it is safe to embed in DDL statements.
func (tq txQueryer) SetupRole(
	ctx context.Context, role repo.Role, pass string,
	hasher scram.Hasher,
) error {
	hash, err := hasher.Hash(pass, "", 4096)
	if err != nil {
		return fmt.Errorf("hashing role password: %w", err)
	}
	_, err = tq.Exec(ctx, fmt.Sprintf(`
DO $$ BEGIN
    IF NOT EXISTS (
        SELECT FROM pg_roles WHERE rolname = '%[1]s'
    ) THEN
        CREATE ROLE %[1]s LOGIN;
    END IF;
END $$`, role,
	))
	if err != nil {
		return fmt.Errorf("creating role %q: %w", role, err)
	}
	_, err = tq.Exec(ctx, fmt.Sprintf(
		"ALTER ROLE %s LOGIN PASSWORD '%s'", role, hash,
	))
	if err != nil {
		return fmt.Errorf("setting role %q password: %w", role, err)
	}
	_, err = tq.Exec(ctx, fmt.Sprintf(`
GRANT SELECT, INSERT, UPDATE, DELETE
    ON locations, vehicles, reservations, holds, payment_events
    TO %s`, role,
	))
	if err != nil {
		return fmt.Errorf("granting privileges to %q: %w", role, err)
	}
	return nil
}
