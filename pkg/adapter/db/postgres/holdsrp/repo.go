// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package holdsrp adapts the core holds repository port to a
// PostgreSQL database. Holds are the only hard-deleted record kind:
// promotion removes them and the lazy sweep reclaims the expired ones.
package holdsrp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres"
	"github.com/momeni/rentacar/pkg/core/model"
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

func (holds *Repo) Conn(c repo.Conn) repo.HoldsConnQueryer {
	cc := c.(*postgres.Conn)
	return connQueryer{Conn: cc}
}

func (cq connQueryer) GetByID(ctx context.Context, holdID uuid.UUID) (*model.Hold, error) {
	return GetByID(ctx, cq.Conn, holdID)
}

type txQueryer struct {
	*postgres.Tx
}

func (holds *Repo) Tx(tx repo.Tx) repo.HoldsTxQueryer {
	tt := tx.(*postgres.Tx)
	return txQueryer{Tx: tt}
}

func (tq txQueryer) GetByID(ctx context.Context, holdID uuid.UUID) (*model.Hold, error) {
	return GetByID(ctx, tq.Tx, holdID)
}

func (tq txQueryer) Create(ctx context.Context, h *model.Hold) error {
	return Create(ctx, tq.Tx, h)
}

func (tq txQueryer) Delete(ctx context.Context, holdID uuid.UUID) (bool, error) {
	return Delete(ctx, tq.Tx, holdID)
}

func (tq txQueryer) DeleteExpired(ctx context.Context, at time.Time) (int64, error) {
	return DeleteExpired(ctx, tq.Tx, at)
}
