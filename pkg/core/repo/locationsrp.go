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

type LocationsConnQueryer interface {
	LocationsQueryer
}

type LocationsTxQueryer interface {
	LocationsQueryer
}

// LocationsQueryer lists the read-only branch queries which the
// reservation engine requires.
type LocationsQueryer interface {
	// GetByID fetches one location by its identifier.
	GetByID(ctx context.Context, locationID uuid.UUID) (*model.Location, error)

	// ListActive fetches all branches which accept bookings.
	ListActive(ctx context.Context) ([]model.Location, error)
}

type Locations interface {
	Conn(Conn) LocationsConnQueryer
	Tx(Tx) LocationsTxQueryer
}
