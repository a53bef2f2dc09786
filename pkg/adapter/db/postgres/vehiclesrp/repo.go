// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package vehiclesrp adapts the core vehicles repository port to a
// PostgreSQL database. The reservation engine only reads vehicles;
// the fleet back office writes them through its own (out of scope)
// surface.
package vehiclesrp

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

func (vehicles *Repo) Conn(c repo.Conn) repo.VehiclesConnQueryer {
	cc := c.(*postgres.Conn)
	return connQueryer{Conn: cc}
}

func (cq connQueryer) GetByID(ctx context.Context, vehicleID uuid.UUID) (*model.Vehicle, error) {
	return GetByID(ctx, cq.Conn, vehicleID)
}

func (cq connQueryer) ListAtLocation(ctx context.Context, locationID uuid.UUID) ([]model.Vehicle, error) {
	return ListAtLocation(ctx, cq.Conn, locationID)
}

type txQueryer struct {
	*postgres.Tx
}

func (vehicles *Repo) Tx(tx repo.Tx) repo.VehiclesTxQueryer {
	tt := tx.(*postgres.Tx)
	return txQueryer{Tx: tt}
}

func (tq txQueryer) GetByID(ctx context.Context, vehicleID uuid.UUID) (*model.Vehicle, error) {
	return GetByID(ctx, tq.Tx, vehicleID)
}

func (tq txQueryer) ListAtLocation(ctx context.Context, locationID uuid.UUID) ([]model.Vehicle, error) {
	return ListAtLocation(ctx, tq.Tx, locationID)
}
