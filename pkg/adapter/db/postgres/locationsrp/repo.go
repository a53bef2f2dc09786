// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package locationsrp adapts the core locations repository port to a
// PostgreSQL database.
package locationsrp

import (
	"context"

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

func (locations *Repo) Conn(c repo.Conn) repo.LocationsConnQueryer {
	cc := c.(*postgres.Conn)
	return connQueryer{Conn: cc}
}

func (cq connQueryer) GetByID(ctx context.Context, locationID uuid.UUID) (*model.Location, error) {
	return GetByID(ctx, cq.Conn, locationID)
}

func (cq connQueryer) ListActive(ctx context.Context) ([]model.Location, error) {
	return ListActive(ctx, cq.Conn)
}

type txQueryer struct {
	*postgres.Tx
}

func (locations *Repo) Tx(tx repo.Tx) repo.LocationsTxQueryer {
	tt := tx.(*postgres.Tx)
	return txQueryer{Tx: tt}
}

func (tq txQueryer) GetByID(ctx context.Context, locationID uuid.UUID) (*model.Location, error) {
	return GetByID(ctx, tq.Tx, locationID)
}

func (tq txQueryer) ListActive(ctx context.Context) ([]model.Location, error) {
	return ListActive(ctx, tq.Tx)
}
