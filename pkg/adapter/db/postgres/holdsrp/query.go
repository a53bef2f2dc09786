// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package holdsrp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres"
	"github.com/momeni/rentacar/pkg/core/cerr"
	"github.com/momeni/rentacar/pkg/core/model"
	"gorm.io/gorm"
)

type gHold struct {
	HID              uuid.UUID      `gorm:"primaryKey;type:uuid;column:hid"`
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
	PaymentSessionID string         `gorm:"column:payment_session_id"`
	CreatedAt        time.Time      `gorm:"column:created_at"`
	ExpiresAt        time.Time      `gorm:"column:expires_at"`
}

func (gh *gHold) TableName() string {
	return "holds"
}

func (gh *gHold) Model() *model.Hold {
	return &model.Hold{
		ID:               gh.HID,
		VehicleID:        gh.VehicleID,
		PickupLocationID: gh.PickupLocationID,
		ReturnLocationID: gh.ReturnLocationID,
		PickupAt:         gh.PickupAt,
		ReturnAt:         gh.ReturnAt,
		Customer:         gh.Customer,
		Notes:            gh.Notes,
		DayCount:         gh.DayCount,
		TotalAmount:      gh.TotalAmount,
		Currency:         gh.Currency,
		PaymentSessionID: gh.PaymentSessionID,
		CreatedAt:        gh.CreatedAt,
		ExpiresAt:        gh.ExpiresAt,
	}
}

func row(h *model.Hold) *gHold {
	return &gHold{
		HID:              h.ID,
		VehicleID:        h.VehicleID,
		PickupLocationID: h.PickupLocationID,
		ReturnLocationID: h.ReturnLocationID,
		PickupAt:         h.PickupAt,
		ReturnAt:         h.ReturnAt,
		Customer:         h.Customer,
		Notes:            h.Notes,
		DayCount:         h.DayCount,
		TotalAmount:      h.TotalAmount,
		Currency:         h.Currency,
		PaymentSessionID: h.PaymentSessionID,
		CreatedAt:        h.CreatedAt,
		ExpiresAt:        h.ExpiresAt,
	}
}

func GetByID[Q postgres.Queryer](ctx context.Context, q Q, holdID uuid.UUID) (*model.Hold, error) {
	gdb := q.GORM(ctx)
	var gh gHold
	err := gdb.Where("hid=?", holdID).First(&gh).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cerr.NotFound(
			fmt.Errorf("no hold with id %s", holdID),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return gh.Model(), nil
}

func Create(ctx context.Context, tx *postgres.Tx, h *model.Hold) error {
	gdb := tx.GORM(ctx)
	if err := gdb.Create(row(h)).Error; err != nil {
		return fmt.Errorf("inserting hold: %w", err)
	}
	return nil
}

func Delete(ctx context.Context, tx *postgres.Tx, holdID uuid.UUID) (bool, error) {
	gdb := tx.GORM(ctx)
	tt := gdb.Where("hid=?", holdID).Delete(&gHold{})
	if err := tt.Error; err != nil {
		return false, fmt.Errorf("deleting hold: %w", err)
	}
	return tt.RowsAffected == 1, nil
}

func DeleteExpired(ctx context.Context, tx *postgres.Tx, at time.Time) (int64, error) {
	gdb := tx.GORM(ctx)
	tt := gdb.Where("expires_at <= ?", at).Delete(&gHold{})
	if err := tt.Error; err != nil {
		return 0, fmt.Errorf("deleting expired holds: %w", err)
	}
	return tt.RowsAffected, nil
}
