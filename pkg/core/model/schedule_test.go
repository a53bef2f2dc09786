// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/rentacar/pkg/core/model"
	"github.com/stretchr/testify/assert"
)

const relocBuffer = 120 * time.Minute

func TestWindowValidate(t *testing.T) {
	w := model.Window{From: date(1, 9), To: date(3, 9)}
	assert.NoError(t, w.Validate())

	w = model.Window{From: date(3, 9), To: date(1, 9)}
	assert.Error(t, w.Validate(), "inverted window must be rejected")

	w = model.Window{From: date(1, 9), To: date(1, 9)}
	assert.Error(t, w.Validate(), "empty window must be rejected")
}

func TestWindowOverlaps(t *testing.T) {
	w := model.Window{From: date(2, 9), To: date(4, 9)}
	for _, tc := range []struct {
		name     string
		other    model.Window
		overlaps bool
	}{
		{
			name:     "fully before",
			other:    model.Window{From: date(1, 9), To: date(2, 8)},
			overlaps: false,
		},
		{
			name:     "touching at the start is exclusive",
			other:    model.Window{From: date(1, 9), To: date(2, 9)},
			overlaps: false,
		},
		{
			name:     "touching at the end is exclusive",
			other:    model.Window{From: date(4, 9), To: date(5, 9)},
			overlaps: false,
		},
		{
			name:     "partial overlap",
			other:    model.Window{From: date(3, 9), To: date(5, 9)},
			overlaps: true,
		},
		{
			name:     "contained",
			other:    model.Window{From: date(2, 12), To: date(3, 12)},
			overlaps: true,
		},
		{
			name:     "containing",
			other:    model.Window{From: date(1, 9), To: date(5, 9)},
			overlaps: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlaps, w.Overlaps(tc.other))
			assert.Equal(
				t, tc.overlaps, tc.other.Overlaps(w),
				"overlapping must be symmetric",
			)
		})
	}
}

func TestBufferRequired(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Zero(t, model.BufferRequired(a, a, relocBuffer))
	assert.Equal(t, relocBuffer, model.BufferRequired(a, b, relocBuffer))
}

// TestConflictsWithBufferRule checks the pickup-after-return scenarios.
// A vehicle is returned to location A at T. A following booking
// picking it up from A right at T needs no idle time. A booking
// picking it up from another location B is rejected until the
// relocation buffer has fully passed.
func TestConflictsWithBufferRule(t *testing.T) {
	locA, locB := uuid.New(), uuid.New()
	ret := date(3, 9) // existing booking returns the vehicle at T
	existing := model.Booking{
		Window:           model.Window{From: date(1, 9), To: ret},
		PickupLocationID: locA,
		ReturnLocationID: locA,
	}
	for _, tc := range []struct {
		name      string
		pickupAt  time.Time
		pickupLoc uuid.UUID
		conflict  bool
	}{
		{
			name:      "same location at T",
			pickupAt:  ret,
			pickupLoc: locA,
			conflict:  false,
		},
		{
			name:      "other location at T",
			pickupAt:  ret,
			pickupLoc: locB,
			conflict:  true,
		},
		{
			name:      "other location at T+60min",
			pickupAt:  ret.Add(60 * time.Minute),
			pickupLoc: locB,
			conflict:  true,
		},
		{
			name:      "other location at T+120min",
			pickupAt:  ret.Add(120 * time.Minute),
			pickupLoc: locB,
			conflict:  false,
		},
		{
			name:      "other location at T+3h",
			pickupAt:  ret.Add(3 * time.Hour),
			pickupLoc: locB,
			conflict:  false,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := model.Candidate{
				Window: model.Window{
					From: tc.pickupAt,
					To:   tc.pickupAt.Add(48 * time.Hour),
				},
				PickupLocationID: tc.pickupLoc,
				ReturnLocationID: tc.pickupLoc,
			}
			assert.Equal(
				t, tc.conflict, c.ConflictsWith(existing, relocBuffer),
			)
		})
	}
}

// TestConflictsWithCandidateFirst covers the mirrored ordering, where
// the candidate returns the vehicle before the existing booking picks
// it up.
func TestConflictsWithCandidateFirst(t *testing.T) {
	locA, locB := uuid.New(), uuid.New()
	existing := model.Booking{
		Window:           model.Window{From: date(10, 9), To: date(12, 9)},
		PickupLocationID: locA,
		ReturnLocationID: locA,
	}
	c := model.Candidate{
		Window:           model.Window{From: date(8, 9), To: date(10, 9)},
		PickupLocationID: locB,
		ReturnLocationID: locA,
	}
	assert.False(
		t, c.ConflictsWith(existing, relocBuffer),
		"returning where the next booking starts needs no buffer",
	)

	c.ReturnLocationID = locB
	assert.True(
		t, c.ConflictsWith(existing, relocBuffer),
		"a back-to-back return at another location needs the buffer",
	)

	c.Window.To = date(10, 7)
	assert.False(
		t, c.ConflictsWith(existing, relocBuffer),
		"a two-hour gap covers the relocation buffer",
	)
}

func TestConflictsWithOverlap(t *testing.T) {
	loc := uuid.New()
	existing := model.Booking{
		Window:           model.Window{From: date(1, 9), To: date(3, 9)},
		PickupLocationID: loc,
		ReturnLocationID: loc,
	}
	c := model.Candidate{
		Window:           model.Window{From: date(2, 0), To: date(4, 0)},
		PickupLocationID: loc,
		ReturnLocationID: loc,
	}
	assert.True(
		t, c.ConflictsWith(existing, relocBuffer),
		"overlapping windows conflict regardless of locations",
	)
}

func TestConflicts(t *testing.T) {
	loc := uuid.New()
	existing := []model.Booking{
		{
			Window:           model.Window{From: date(1, 9), To: date(3, 9)},
			PickupLocationID: loc,
			ReturnLocationID: loc,
		},
		{
			Window:           model.Window{From: date(10, 9), To: date(12, 9)},
			PickupLocationID: loc,
			ReturnLocationID: loc,
		},
	}
	c := model.Candidate{
		Window:           model.Window{From: date(5, 9), To: date(7, 9)},
		PickupLocationID: loc,
		ReturnLocationID: loc,
	}
	assert.False(t, c.Conflicts(existing, relocBuffer))

	c.Window.To = date(11, 9)
	assert.True(t, c.Conflicts(existing, relocBuffer))

	assert.False(
		t, c.Conflicts(nil, relocBuffer),
		"an empty schedule admits any candidate",
	)
}
