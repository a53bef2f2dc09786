// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package paymenteventsrp adapts the core payment-events repository
// port to a PostgreSQL database. The table is a plain first-writer-
// wins set of applied external event ids, which is what makes webhook
// reconciliation idempotent under at-least-once delivery.
package paymenteventsrp

import (
	"context"
	"time"

	"github.com/momeni/rentacar/pkg/adapter/db/postgres"
	"github.com/momeni/rentacar/pkg/core/repo"
)

type Repo struct {
}

func New() *Repo {
	return &Repo{}
}

type connQueryer struct {
	*postgres.Conn
}

func (events *Repo) Conn(c repo.Conn) repo.PaymentEventsConnQueryer {
	cc := c.(*postgres.Conn)
	return connQueryer{Conn: cc}
}

func (cq connQueryer) Applied(ctx context.Context, eventID string) (bool, error) {
	return Applied(ctx, cq.Conn, eventID)
}

type txQueryer struct {
	*postgres.Tx
}

func (events *Repo) Tx(tx repo.Tx) repo.PaymentEventsTxQueryer {
	tt := tx.(*postgres.Tx)
	return txQueryer{Tx: tt}
}

func (tq txQueryer) Applied(ctx context.Context, eventID string) (bool, error) {
	return Applied(ctx, tq.Tx, eventID)
}

func (tq txQueryer) Apply(ctx context.Context, eventID string, at time.Time) (bool, error) {
	return Apply(ctx, tq.Tx, eventID, at)
}
