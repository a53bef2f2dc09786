// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import "github.com/google/uuid"

// Vehicle models a rentable vehicle together with its tiered pricing
// schedule. Vehicles are created and edited by the fleet back office
// and are read-only as far as the reservation engine is concerned.
// The LocationID field indicates the branch where the vehicle is
// currently stationed, hence, where it may be offered for pickup.
type Vehicle struct {
	ID         uuid.UUID       // vehicle identifier
	Name       string          // display name, e.g., make and model
	Plate      string          // registration plate
	LocationID uuid.UUID       // branch where the vehicle is stationed
	Pricing    PricingSchedule `gorm:"embedded"`
}

// VehicleOffer is a fleet-search result item, pairing a bookable
// vehicle with the price which was computed for the requested window.
type VehicleOffer struct {
	Vehicle  Vehicle
	DayCount int
	Total    int64    // total price in minor currency units
	Badges   []string // e.g., the matched pricing tier
}
