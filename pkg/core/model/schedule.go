// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Window is a half-open [From, To) time range. All schedule
// comparisons in this package treat the To instant as excluded, so a
// rental returning at 09:00 and another picking up at 09:00 do not
// overlap in time (whether they conflict still depends on the
// relocation buffer rule below).
type Window struct {
	From time.Time
	To   time.Time
}

// Validate checks that the w window is well-formed, that is, From
// precedes To strictly.
func (w Window) Validate() error {
	if !w.From.Before(w.To) {
		return errors.New("window start must precede its end")
	}
	return nil
}

// Overlaps reports whether the w and o half-open windows share any
// instant.
func (w Window) Overlaps(o Window) bool {
	return w.From.Before(o.To) && w.To.After(o.From)
}

// Booking is the schedule-relevant projection of an existing occupancy
// record, either a pending/confirmed reservation or a live hold.
// It carries exactly the fields which the conflict algorithm needs,
// so other customers' identifying details never reach this layer.
type Booking struct {
	Window
	PickupLocationID uuid.UUID
	ReturnLocationID uuid.UUID
}

// Candidate is a requested booking to be checked against the existing
// schedule of one vehicle.
type Candidate struct {
	Window
	PickupLocationID uuid.UUID
	ReturnLocationID uuid.UUID
}

// BufferRequired returns the minimum idle time which must separate a
// vehicle's return at location a from its next pickup at location b.
// A vehicle handed back where it is next picked up needs no buffer;
// otherwise reloc accounts for the physical relocation drive.
func BufferRequired(a, b uuid.UUID, reloc time.Duration) time.Duration {
	if a == b {
		return 0
	}
	return reloc
}

// ConflictsWith reports whether the c candidate may not coexist with
// the b existing booking, given the reloc relocation buffer. A
// conflict is either a direct overlap of the two windows, or a gap
// between them which is shorter than the relocation buffer required
// by the involved locations.
func (c Candidate) ConflictsWith(b Booking, reloc time.Duration) bool {
	if c.Window.Overlaps(b.Window) {
		return true
	}
	if !b.To.After(c.From) {
		// existing booking ends first; the vehicle must travel from
		// its return location to the candidate's pickup location
		gap := c.From.Sub(b.To)
		return gap < BufferRequired(
			b.ReturnLocationID, c.PickupLocationID, reloc,
		)
	}
	// candidate ends first; the vehicle must travel from the
	// candidate's return location to the existing pickup location
	gap := b.From.Sub(c.To)
	return gap < BufferRequired(
		c.ReturnLocationID, b.PickupLocationID, reloc,
	)
}

// Conflicts reports whether the c candidate conflicts with any of the
// existing bookings, given the reloc relocation buffer. This single
// algorithm backs both the single-vehicle availability check and the
// fleet search, so the two paths can never disagree about what is
// bookable.
func (c Candidate) Conflicts(existing []Booking, reloc time.Duration) bool {
	for _, b := range existing {
		if c.ConflictsWith(b, reloc) {
			return true
		}
	}
	return false
}
