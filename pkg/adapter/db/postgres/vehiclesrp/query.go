// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package vehiclesrp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres"
	"github.com/momeni/rentacar/pkg/core/cerr"
	"github.com/momeni/rentacar/pkg/core/model"
	"gorm.io/gorm"
)

type gVehicle struct {
	VID        uuid.UUID             `gorm:"primaryKey;type:uuid;column:vid"`
	Name       string                `gorm:"column:name"`
	Plate      string                `gorm:"column:plate"`
	LocationID uuid.UUID             `gorm:"type:uuid;column:location_id"`
	Pricing    model.PricingSchedule `gorm:"embedded"`
}

func (gv *gVehicle) TableName() string {
	return "vehicles"
}

func (gv *gVehicle) Model() *model.Vehicle {
	return &model.Vehicle{
		ID:         gv.VID,
		Name:       gv.Name,
		Plate:      gv.Plate,
		LocationID: gv.LocationID,
		Pricing:    gv.Pricing,
	}
}

func GetByID[Q postgres.Queryer](ctx context.Context, q Q, vehicleID uuid.UUID) (*model.Vehicle, error) {
	gdb := q.GORM(ctx)
	var gv gVehicle
	err := gdb.Where("vid=?", vehicleID).First(&gv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cerr.NotFound(
			fmt.Errorf("no vehicle with id %s", vehicleID),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return gv.Model(), nil
}

func ListAtLocation[Q postgres.Queryer](ctx context.Context, q Q, locationID uuid.UUID) ([]model.Vehicle, error) {
	gdb := q.GORM(ctx)
	var gvs []gVehicle
	err := gdb.Where("location_id=?", locationID).Order("name").Find(&gvs).Error
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	vehicles := make([]model.Vehicle, 0, len(gvs))
	for i := range gvs {
		vehicles = append(vehicles, *gvs[i].Model())
	}
	return vehicles, nil
}
