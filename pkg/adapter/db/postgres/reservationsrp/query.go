// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package reservationsrp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres"
	"github.com/momeni/rentacar/pkg/core/cerr"
	"github.com/momeni/rentacar/pkg/core/model"
	"github.com/momeni/rentacar/pkg/core/repo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gReservation struct {
	RID              uuid.UUID      `gorm:"primaryKey;type:uuid;column:rid"`
	Code             string         `gorm:"column:code"`
	VehicleID        uuid.UUID      `gorm:"type:uuid;column:vehicle_id"`
	PickupLocationID uuid.UUID      `gorm:"type:uuid;column:pickup_location_id"`
	ReturnLocationID uuid.UUID      `gorm:"type:uuid;column:return_location_id"`
	PickupAt         time.Time      `gorm:"column:pickup_at"`
	ReturnAt         time.Time      `gorm:"column:return_at"`
	Customer         model.Customer `gorm:"embedded;embeddedPrefix:customer_"`
	Notes            string         `gorm:"column:notes"`
	DayCount         int            `gorm:"column:day_count"`
	TotalAmount      int64          `gorm:"column:total_amount"`
	Currency         string         `gorm:"column:currency"`
	Status           string         `gorm:"column:status"`
	PaymentStatus    string         `gorm:"column:payment_status"`
	PaymentSessionID string         `gorm:"column:payment_session_id"`
	PaymentRef       string         `gorm:"column:payment_ref"`
	CreatedAt        time.Time      `gorm:"column:created_at"`
	ConfirmedAt      *time.Time     `gorm:"column:confirmed_at"`
	CancelledAt      *time.Time     `gorm:"column:cancelled_at"`
}

func (gr *gReservation) TableName() string {
	return "reservations"
}

func (gr *gReservation) Model() *model.Reservation {
	return &model.Reservation{
		ID:               gr.RID,
		Code:             gr.Code,
		VehicleID:        gr.VehicleID,
		PickupLocationID: gr.PickupLocationID,
		ReturnLocationID: gr.ReturnLocationID,
		PickupAt:         gr.PickupAt,
		ReturnAt:         gr.ReturnAt,
		Customer:         gr.Customer,
		Notes:            gr.Notes,
		DayCount:         gr.DayCount,
		TotalAmount:      gr.TotalAmount,
		Currency:         gr.Currency,
		Status:           model.Status(gr.Status),
		PaymentStatus:    model.PaymentStatus(gr.PaymentStatus),
		PaymentSessionID: gr.PaymentSessionID,
		PaymentRef:       gr.PaymentRef,
		CreatedAt:        gr.CreatedAt,
		ConfirmedAt:      gr.ConfirmedAt,
		CancelledAt:      gr.CancelledAt,
	}
}

func row(r *model.Reservation) *gReservation {
	return &gReservation{
		RID:              r.ID,
		Code:             r.Code,
		VehicleID:        r.VehicleID,
		PickupLocationID: r.PickupLocationID,
		ReturnLocationID: r.ReturnLocationID,
		PickupAt:         r.PickupAt,
		ReturnAt:         r.ReturnAt,
		Customer:         r.Customer,
		Notes:            r.Notes,
		DayCount:         r.DayCount,
		TotalAmount:      r.TotalAmount,
		Currency:         r.Currency,
		Status:           string(r.Status),
		PaymentStatus:    string(r.PaymentStatus),
		PaymentSessionID: r.PaymentSessionID,
		PaymentRef:       r.PaymentRef,
		CreatedAt:        r.CreatedAt,
		ConfirmedAt:      r.ConfirmedAt,
		CancelledAt:      r.CancelledAt,
	}
}

func GetByID[Q postgres.Queryer](ctx context.Context, q Q, reservationID uuid.UUID) (*model.Reservation, error) {
	gdb := q.GORM(ctx)
	var gr gReservation
	err := gdb.Where("rid=?", reservationID).First(&gr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cerr.NotFound(
			fmt.Errorf("no reservation with id %s", reservationID),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return gr.Model(), nil
}

func GetByCode[Q postgres.Queryer](ctx context.Context, q Q, code string) (*model.Reservation, error) {
	gdb := q.GORM(ctx)
	var gr gReservation
	err := gdb.Where("code=?", code).First(&gr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cerr.NotFound(
			fmt.Errorf("no reservation with code %s", code),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return gr.Model(), nil
}

// Occupancy lists the schedule projection of all pending/confirmed
// reservations and live holds of one vehicle. Both tables are read in
// one statement, so a single snapshot covers the whole conflict space.
func Occupancy[Q postgres.Queryer](
	ctx context.Context, q Q,
	vehicleID uuid.UUID, at time.Time, excludeHold uuid.UUID,
) ([]model.Booking, error) {
	gdb := q.GORM(ctx)
	var rows []struct {
		PickupAt         time.Time
		ReturnAt         time.Time
		PickupLocationID uuid.UUID
		ReturnLocationID uuid.UUID
	}
	err := gdb.Raw(`
SELECT pickup_at, return_at, pickup_location_id, return_location_id
  FROM reservations
 WHERE vehicle_id=? AND status IN ('pending', 'confirmed')
UNION ALL
SELECT pickup_at, return_at, pickup_location_id, return_location_id
  FROM holds
 WHERE vehicle_id=? AND expires_at > ? AND hid <> ?`,
		vehicleID, vehicleID, at, excludeHold,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	bookings := make([]model.Booking, 0, len(rows))
	for _, r := range rows {
		bookings = append(bookings, model.Booking{
			Window: model.Window{
				From: r.PickupAt,
				To:   r.ReturnAt,
			},
			PickupLocationID: r.PickupLocationID,
			ReturnLocationID: r.ReturnLocationID,
		})
	}
	return bookings, nil
}

// LockVehicle serializes the current transaction against all other
// booking writers of the vehicleID vehicle using a transaction-scoped
// advisory lock. PostgreSQL releases it automatically at commit or
// rollback time.
func LockVehicle(ctx context.Context, tx *postgres.Tx, vehicleID uuid.UUID) error {
	_, err := tx.Exec(
		ctx,
		"SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))",
		vehicleID.String(),
	)
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// SQLSTATE codes which the insertion path translates into a booking
// conflict: 23P01 is raised by the reservations exclusion constraint
// on a direct window overlap, 23505 by the unique reservation code.
const (
	sqlstateExclusionViolation = "23P01"
	sqlstateUniqueViolation    = "23505"
)

func Create(ctx context.Context, tx *postgres.Tx, r *model.Reservation) error {
	gdb := tx.GORM(ctx)
	if err := gdb.Create(row(r)).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.SQLState() {
			case sqlstateExclusionViolation, sqlstateUniqueViolation:
				return cerr.Conflict(errors.New(
					"the selected period is not available",
				))
			}
		}
		return fmt.Errorf("inserting reservation: %w", err)
	}
	return nil
}

func SetPaymentSession(ctx context.Context, tx *postgres.Tx, reservationID uuid.UUID, sessionID string) error {
	gdb := tx.GORM(ctx)
	tt := gdb.Model(&gReservation{}).Where(
		"rid=?", reservationID,
	).Update("payment_session_id", sessionID)
	if err := tt.Error; err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if n := tt.RowsAffected; n != 1 {
		return cerr.NotFound(
			fmt.Errorf("expected one row, but got %d", n),
		)
	}
	return nil
}

func UpdateStatus(ctx context.Context, tx *postgres.Tx, reservationID uuid.UUID, u repo.StatusUpdate) (*model.Reservation, error) {
	cols := map[string]any{
		"status":         string(u.Status),
		"payment_status": string(u.PaymentStatus),
	}
	if u.PaymentRef != "" {
		cols["payment_ref"] = u.PaymentRef
	}
	switch u.Status {
	case model.StatusConfirmed:
		cols["confirmed_at"] = u.At
	case model.StatusCancelled:
		cols["cancelled_at"] = u.At
	}
	gdb := tx.GORM(ctx)
	var grs []gReservation
	gdb.Model(&grs).Clauses(clause.Returning{}).Where(
		"rid=?", reservationID,
	).Updates(cols)
	if err := gdb.Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if n := len(grs); n != 1 {
		return nil, cerr.NotFound(
			fmt.Errorf("expected one row, but got %d", n),
		)
	}
	return grs[0].Model(), nil
}
