// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/momeni/rentacar/pkg/core/model"
)

type VehiclesConnQueryer interface {
	VehiclesQueryer
}

type VehiclesTxQueryer interface {
	VehiclesQueryer
}

// VehiclesQueryer lists the read-only vehicle queries which the
// reservation engine requires. Vehicles are written by the fleet back
// office which is out of this module's scope.
type VehiclesQueryer interface {
	// GetByID fetches one vehicle by its identifier.
	GetByID(ctx context.Context, vehicleID uuid.UUID) (*model.Vehicle, error)

	// ListAtLocation fetches all vehicles which are currently
	// stationed at the locationID branch.
	ListAtLocation(ctx context.Context, locationID uuid.UUID) ([]model.Vehicle, error)
}

type Vehicles interface {
	Conn(Conn) VehiclesConnQueryer
	Tx(Tx) VehiclesTxQueryer
}
