// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package reservationsrp adapts the core reservations repository port
// to a PostgreSQL database. Beside the usual row mapping it owns the
// two concurrency primitives of the booking path: the per-vehicle
// advisory lock which serializes check-then-insert sequences, and the
// translation of the reservations exclusion constraint violation into
// the core conflict error.
package reservationsrp

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

func (reservations *Repo) Conn(c repo.Conn) repo.ReservationsConnQueryer {
	cc := c.(*postgres.Conn)
	return connQueryer{Conn: cc}
}

func (cq connQueryer) GetByID(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error) {
	return GetByID(ctx, cq.Conn, reservationID)
}

func (cq connQueryer) GetByCode(ctx context.Context, code string) (*model.Reservation, error) {
	return GetByCode(ctx, cq.Conn, code)
}

func (cq connQueryer) Occupancy(ctx context.Context, vehicleID uuid.UUID, at time.Time, excludeHold uuid.UUID) ([]model.Booking, error) {
	return Occupancy(ctx, cq.Conn, vehicleID, at, excludeHold)
}

type txQueryer struct {
	*postgres.Tx
}

func (reservations *Repo) Tx(tx repo.Tx) repo.ReservationsTxQueryer {
	tt := tx.(*postgres.Tx)
	return txQueryer{Tx: tt}
}

func (tq txQueryer) GetByID(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error) {
	return GetByID(ctx, tq.Tx, reservationID)
}

func (tq txQueryer) GetByCode(ctx context.Context, code string) (*model.Reservation, error) {
	return GetByCode(ctx, tq.Tx, code)
}

func (tq txQueryer) Occupancy(ctx context.Context, vehicleID uuid.UUID, at time.Time, excludeHold uuid.UUID) ([]model.Booking, error) {
	return Occupancy(ctx, tq.Tx, vehicleID, at, excludeHold)
}

func (tq txQueryer) LockVehicle(ctx context.Context, vehicleID uuid.UUID) error {
	return LockVehicle(ctx, tq.Tx, vehicleID)
}

func (tq txQueryer) Create(ctx context.Context, r *model.Reservation) error {
	return Create(ctx, tq.Tx, r)
}

func (tq txQueryer) SetPaymentSession(ctx context.Context, reservationID uuid.UUID, sessionID string) error {
	return SetPaymentSession(ctx, tq.Tx, reservationID, sessionID)
}

func (tq txQueryer) UpdateStatus(ctx context.Context, reservationID uuid.UUID, u repo.StatusUpdate) (*model.Reservation, error) {
	return UpdateStatus(ctx, tq.Tx, reservationID, u)
}
