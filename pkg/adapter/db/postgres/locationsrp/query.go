// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package locationsrp

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

type gLocation struct {
	LID     uuid.UUID `gorm:"primaryKey;type:uuid;column:lid"`
	Name    string    `gorm:"column:name"`
	Address string    `gorm:"column:address"`
	Active  bool      `gorm:"column:active"`
}

func (gl *gLocation) TableName() string {
	return "locations"
}

func (gl *gLocation) Model() *model.Location {
	return &model.Location{
		ID:      gl.LID,
		Name:    gl.Name,
		Address: gl.Address,
		Active:  gl.Active,
	}
}

func GetByID[Q postgres.Queryer](ctx context.Context, q Q, locationID uuid.UUID) (*model.Location, error) {
	gdb := q.GORM(ctx)
	var gl gLocation
	err := gdb.Where("lid=?", locationID).First(&gl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cerr.NotFound(
			fmt.Errorf("no location with id %s", locationID),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return gl.Model(), nil
}

func ListActive[Q postgres.Queryer](ctx context.Context, q Q) ([]model.Location, error) {
	gdb := q.GORM(ctx)
	var gls []gLocation
	err := gdb.Where("active").Order("name").Find(&gls).Error
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	locations := make([]model.Location, 0, len(gls))
	for i := range gls {
		locations = append(locations, *gls[i].Model())
	}
	return locations, nil
}
