// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a reservation, persisted as a
// string.
type Status string

// These constants enumerate the reservation lifecycle states.
const (
	StatusPending   Status = "pending"   // created, payment in flight
	StatusConfirmed Status = "confirmed" // payment settled
	StatusCancelled Status = "cancelled" // cancelled by customer/admin
	StatusCompleted Status = "completed" // rental period is over
)

// PaymentStatus is the payment state of a reservation, persisted as a
// string. It evolves independently of the Status lifecycle, except
// that a confirmed reservation is always paid.
type PaymentStatus string

// These constants enumerate the payment states.
const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// allowedTransitions configures the reservation state machine as a
// directed graph. Terminal states map to an empty slice, so no
// transition may leave them.
var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
	StatusCancelled: {},
	StatusCompleted: {},
}

// CanTransition reports whether from -> to is a valid reservation
// state transition. A state may always "transition" to itself, which
// backs the idempotent no-op semantics of repeated confirmations.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError indicates a reservation state transition
// which is not allowed by the state machine.
type InvalidTransitionError struct {
	From, To Status
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf(
		"invalid reservation status transition: %s -> %s", e.From, e.To,
	)
}

// Customer holds the contact fields which a booking request must
// provide. They are stored verbatim on the reservation.
type Customer struct {
	Name     string
	LastName string
	Email    string
	Phone    string
}

// Reservation models a booked rental period of one vehicle. Rows are
// never hard-deleted; cancellation is a status. The Code field is a
// human-shareable identifier which is assigned exactly once, at
// creation, and never changes afterwards.
type Reservation struct {
	ID               uuid.UUID
	Code             string // immutable, unique, human-shareable
	VehicleID        uuid.UUID
	PickupLocationID uuid.UUID
	ReturnLocationID uuid.UUID
	PickupAt         time.Time
	ReturnAt         time.Time
	Customer         Customer `gorm:"embedded"`
	Notes            string
	DayCount         int
	TotalAmount      int64  // minor currency units
	Currency         string // ISO-4217 code
	Status           Status
	PaymentStatus    PaymentStatus
	PaymentSessionID string // external payment session identifier
	PaymentRef       string // external reference set on confirmation
	CreatedAt        time.Time
	ConfirmedAt      *time.Time
	CancelledAt      *time.Time
}

// Window returns the occupied [pickup, return) time window of the r
// reservation.
func (r *Reservation) Window() Window {
	return Window{From: r.PickupAt, To: r.ReturnAt}
}

// Transition applies the to status to the r reservation after checking
// it against the state machine, maintaining the relevant timestamp
// fields. Transitioning to the current status is a no-op.
func (r *Reservation) Transition(to Status, now time.Time) error {
	from := r.Status
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	r.Status = to
	switch to {
	case StatusConfirmed:
		if r.ConfirmedAt == nil {
			t := now
			r.ConfirmedAt = &t
		}
	case StatusCancelled:
		if r.CancelledAt == nil {
			t := now
			r.CancelledAt = &t
		}
	}
	return nil
}

// codeAlphabet excludes the easily confused 0/O and 1/I characters
// since reservation codes are meant to be read over the phone.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewCode generates a fresh human-shareable reservation code such as
// RC-7KQ2M9XW. Uniqueness is ultimately enforced by the storage layer;
// the 8 random characters over a 32-symbol alphabet make collisions
// rare enough that an insertion retry is acceptable.
func NewCode() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return "RC-" + string(buf[:]), nil
}
