// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/rentacar/pkg/core/model"
)

type ReservationsConnQueryer interface {
	ReservationsQueryer
}

// ReservationsTxQueryer adds the write operations which must only run
// inside a transaction, after LockVehicle has serialized the current
// transaction against other booking writers of the same vehicle.
type ReservationsTxQueryer interface {
	ReservationsQueryer

	// LockVehicle acquires a transaction-scoped exclusive lock for the
	// vehicleID vehicle, serializing the check-then-insert sequence of
	// concurrent booking attempts. The lock is released when the
	// enclosing transaction commits or rolls back.
	LockVehicle(ctx context.Context, vehicleID uuid.UUID) error

	// Create inserts the r reservation. The storage layer enforces
	// uniqueness of the reservation code and absence of directly
	// overlapping pending/confirmed rows for the same vehicle; both
	// violations are reported as errors.
	Create(ctx context.Context, r *model.Reservation) error

	// SetPaymentSession stores the external payment session identifier
	// on the reservationID reservation. It fails if the row does not
	// exist.
	SetPaymentSession(ctx context.Context, reservationID uuid.UUID, sessionID string) error

	// UpdateStatus persists a status transition together with the
	// dependent payment fields. Fields with zero values are left
	// untouched, except the timestamps which follow the status.
	// It fails if the reservationID row does not exist.
	UpdateStatus(ctx context.Context, reservationID uuid.UUID, u StatusUpdate) (*model.Reservation, error)
}

// StatusUpdate carries the mutable reservation fields which may change
// during a lifecycle transition.
type StatusUpdate struct {
	Status        model.Status
	PaymentStatus model.PaymentStatus
	PaymentRef    string
	At            time.Time // transition time for the status timestamp
}

// ReservationsQueryer lists the reservation queries which are valid on
// both connections and transactions.
type ReservationsQueryer interface {
	// GetByID fetches one reservation by its identifier.
	GetByID(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error)

	// GetByCode fetches one reservation by its human-shareable code.
	GetByCode(ctx context.Context, code string) (*model.Reservation, error)

	// Occupancy fetches the schedule projection of all records which
	// occupy the vehicleID vehicle's calendar at the `at` instant:
	// pending and confirmed reservations plus holds which have not
	// expired yet. A non-uuid.Nil excludeHold leaves that one hold
	// out, so a hold does not conflict with its own promotion.
	Occupancy(ctx context.Context, vehicleID uuid.UUID, at time.Time, excludeHold uuid.UUID) ([]model.Booking, error)
}

type Reservations interface {
	Conn(Conn) ReservationsConnQueryer
	Tx(Tx) ReservationsTxQueryer
}
