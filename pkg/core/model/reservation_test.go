// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/momeni/rentacar/pkg/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	for _, tc := range []struct {
		from, to model.Status
		allowed  bool
	}{
		{model.StatusPending, model.StatusConfirmed, true},
		{model.StatusPending, model.StatusCancelled, true},
		{model.StatusPending, model.StatusCompleted, false},
		{model.StatusConfirmed, model.StatusCancelled, true},
		{model.StatusConfirmed, model.StatusCompleted, true},
		{model.StatusConfirmed, model.StatusPending, false},
		{model.StatusCancelled, model.StatusPending, false},
		{model.StatusCancelled, model.StatusConfirmed, false},
		{model.StatusCompleted, model.StatusCancelled, false},
		// self transitions are always allowed
		{model.StatusPending, model.StatusPending, true},
		{model.StatusConfirmed, model.StatusConfirmed, true},
		{model.StatusCancelled, model.StatusCancelled, true},
		{model.StatusCompleted, model.StatusCompleted, true},
	} {
		assert.Equal(
			t, tc.allowed, model.CanTransition(tc.from, tc.to),
			"transition %s -> %s", tc.from, tc.to,
		)
	}
}

func TestTransition(t *testing.T) {
	now := date(5, 12)
	r := &model.Reservation{Status: model.StatusPending}

	err := r.Transition(model.StatusConfirmed, now)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, r.Status)
	require.NotNil(t, r.ConfirmedAt)
	assert.Equal(t, now, *r.ConfirmedAt)

	later := now.Add(time.Hour)
	err = r.Transition(model.StatusConfirmed, later)
	require.NoError(t, err, "repeated confirmation is a no-op")
	assert.Equal(
		t, now, *r.ConfirmedAt,
		"repeated confirmation may not move the timestamp",
	)

	err = r.Transition(model.StatusCancelled, later)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, r.Status)
	require.NotNil(t, r.CancelledAt)
	assert.Equal(t, later, *r.CancelledAt)

	err = r.Transition(model.StatusConfirmed, later)
	var ite *model.InvalidTransitionError
	require.ErrorAs(t, err, &ite, "cancelled is a terminal state")
	assert.Equal(t, model.StatusCancelled, ite.From)
	assert.Equal(t, model.StatusConfirmed, ite.To)
	assert.Equal(
		t, model.StatusCancelled, r.Status,
		"a rejected transition may not change the status",
	)
}

func TestNewCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := model.NewCode()
		require.NoError(t, err)
		require.Len(t, code, 11)
		require.True(
			t, strings.HasPrefix(code, "RC-"),
			"unexpected code prefix: %q", code,
		)
		for _, c := range code[3:] {
			assert.NotContains(
				t, "01OI", string(c),
				"code %q contains a confusable character", code,
			)
		}
		seen[code] = struct{}{}
	}
	assert.Greater(
		t, len(seen), 90,
		"codes collide far too frequently",
	)
}
