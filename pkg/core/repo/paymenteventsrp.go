// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"
	"time"
)

type PaymentEventsConnQueryer interface {
	PaymentEventsQueryer
}

type PaymentEventsTxQueryer interface {
	PaymentEventsQueryer

	// Apply records the external eventID as applied, reporting true
	// exactly once: the first application inserts the id and returns
	// true, while every later attempt observes the existing row and
	// returns false. Webhook deliveries are at-least-once, so this
	// first-writer-wins record is what makes reconciliation
	// idempotent.
	Apply(ctx context.Context, eventID string, at time.Time) (bool, error)
}

// PaymentEventsQueryer lists the applied-event queries which are valid
// on both connections and transactions.
type PaymentEventsQueryer interface {
	// Applied reports whether the external eventID has already been
	// applied.
	Applied(ctx context.Context, eventID string) (bool, error)
}

type PaymentEvents interface {
	Conn(Conn) PaymentEventsConnQueryer
	Tx(Tx) PaymentEventsTxQueryer
}
