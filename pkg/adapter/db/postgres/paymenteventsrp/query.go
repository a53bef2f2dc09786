// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package paymenteventsrp

import (
	"context"
	"fmt"
	"time"

	"github.com/momeni/rentacar/pkg/adapter/db/postgres"
)

// Applied reports whether the eventID external event was applied
// before.
func Applied[Q postgres.Queryer](ctx context.Context, q Q, eventID string) (applied bool, err error) {
	rows, err := q.Query(
		ctx,
		"SELECT 1 FROM payment_events WHERE event_id=$1",
		eventID,
	)
	if err != nil {
		return false, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	applied = rows.Next()
	return applied, rows.Err()
}

// Apply records the eventID external event as applied. The insertion
// is a first-writer-wins race: exactly one caller for each event id
// observes a true result, even among concurrent duplicate deliveries.
func Apply(ctx context.Context, tx *postgres.Tx, eventID string, at time.Time) (bool, error) {
	count, err := tx.Exec(
		ctx,
		`INSERT INTO payment_events (event_id, applied_at)
		 VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING`,
		eventID, at,
	)
	if err != nil {
		return false, fmt.Errorf("inserting payment event: %w", err)
	}
	return count == 1, nil
}
