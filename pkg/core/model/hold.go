// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"time"

	"github.com/google/uuid"
)

// Hold models a time-boxed draft reservation which occupies a
// vehicle's schedule while an external payment is in flight. A live
// hold takes part in conflict checks exactly like a pending
// reservation. On successful payment it is promoted into a durable
// Reservation and removed; once ExpiresAt passes it no longer blocks
// anything and may be discarded by a lazy sweep.
type Hold struct {
	ID               uuid.UUID
	VehicleID        uuid.UUID
	PickupLocationID uuid.UUID
	ReturnLocationID uuid.UUID
	PickupAt         time.Time
	ReturnAt         time.Time
	Customer         Customer `gorm:"embedded"`
	Notes            string
	DayCount         int
	TotalAmount      int64
	Currency         string
	PaymentSessionID string // external payment session identifier
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// Expired reports whether the h hold has passed its expiry time.
func (h *Hold) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// Window returns the occupied [pickup, return) time window of the h
// hold.
func (h *Hold) Window() Window {
	return Window{From: h.PickupAt, To: h.ReturnAt}
}
