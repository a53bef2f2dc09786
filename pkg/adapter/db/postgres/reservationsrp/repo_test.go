// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package reservationsrp_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/rentacar/internal/test/dbcontainer"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres/reservationsrp"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres/schema"
	"github.com/momeni/rentacar/pkg/core/cerr"
	"github.com/momeni/rentacar/pkg/core/model"
	"github.com/momeni/rentacar/pkg/core/repo"
	"github.com/stretchr/testify/require"
)

// TestCreateOverlapConflict inserts two reservations with overlapping
// windows on one vehicle without taking the per-vehicle advisory lock,
// so the reservations exclusion constraint itself must reject the
// second insert and surface as a booking conflict. This is the
// backstop for writers which bypass the lock discipline.
func TestCreateOverlapConflict(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return // errors are already logged
	}
	vehicleID, locationID := prepareFleet(ctx, req, pool)

	pickup := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	ret := time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)
	first := sampleReservation(vehicleID, locationID, pickup, ret)
	err := createReservation(ctx, pool, first)
	req.NoError(err, "failed to insert the first reservation")

	second := sampleReservation(
		vehicleID, locationID,
		pickup.AddDate(0, 0, 1), ret.AddDate(0, 0, 1),
	)
	err = createReservation(ctx, pool, second)
	req.Error(err, "the overlapping insert must be rejected")
	var ce *cerr.Error
	req.ErrorAs(
		err, &ce,
		"the exclusion violation is translated to a core error",
	)
	req.Equal(409, ce.HTTPStatusCode)
	req.ErrorContains(err, "the selected period is not available")

	// the reservation code is unique too; a disjoint window with a
	// recycled code conflicts all the same
	third := sampleReservation(
		vehicleID, locationID,
		pickup.AddDate(0, 1, 0), ret.AddDate(0, 1, 0),
	)
	third.Code = first.Code
	err = createReservation(ctx, pool, third)
	req.ErrorAs(err, &ce, "two rows may not share one code")
	req.Equal(409, ce.HTTPStatusCode)

	// a cancelled row leaves the exclusion space, so the same window
	// is insertable beside it
	cancelled := sampleReservation(vehicleID, locationID, pickup, ret)
	cancelled.Status = model.StatusCancelled
	err = createReservation(ctx, pool, cancelled)
	req.NoError(err, "cancelled rows do not occupy the window")
}

func prepareFleet(
	ctx context.Context, req *require.Assertions, pool *postgres.Pool,
) (vehicleID, locationID uuid.UUID) {
	locationID = uuid.New()
	vehicleID = uuid.New()
	err := pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		err := c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return schema.New().Tx(tx).InitSchema(ctx)
		})
		if err != nil {
			return err
		}
		if _, err = c.Exec(
			ctx,
			`INSERT INTO locations(lid, name, address, active)
VALUES ($1, 'Airport', 'Airport Blvd 1', TRUE)`,
			locationID,
		); err != nil {
			return err
		}
		_, err = c.Exec(
			ctx,
			`INSERT INTO vehicles(
    vid, name, plate, location_id,
    daily_1_3, daily_4_7, daily_8_14, daily_15_plus
) VALUES ($1, 'Fiat Panda', 'AB-123-CD', $2, 5000, 4500, 4000, 3500)`,
			vehicleID, locationID,
		)
		return err
	})
	req.NoError(err, "failed to initialize and seed the database")
	return vehicleID, locationID
}

func sampleReservation(
	vehicleID, locationID uuid.UUID, pickup, ret time.Time,
) *model.Reservation {
	code, err := model.NewCode()
	if err != nil {
		panic(err)
	}
	return &model.Reservation{
		ID:               uuid.New(),
		Code:             code,
		VehicleID:        vehicleID,
		PickupLocationID: locationID,
		ReturnLocationID: locationID,
		PickupAt:         pickup,
		ReturnAt:         ret,
		Customer: model.Customer{
			Name:     "Jane",
			LastName: "Doe",
			Email:    "jane@example.com",
			Phone:    "+31123456789",
		},
		DayCount:      2,
		TotalAmount:   10000,
		Currency:      "EUR",
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentUnpaid,
		CreatedAt:     time.Now().UTC(),
	}
}

func createReservation(
	ctx context.Context, pool *postgres.Pool, r *model.Reservation,
) error {
	reservations := reservationsrp.New()
	return pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return reservations.Tx(tx).Create(ctx, r)
		})
	})
}
