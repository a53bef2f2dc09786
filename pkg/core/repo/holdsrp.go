// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/rentacar/pkg/core/model"
)

type HoldsConnQueryer interface {
	HoldsQueryer
}

type HoldsTxQueryer interface {
	HoldsQueryer

	// Create inserts the h hold.
	Create(ctx context.Context, h *model.Hold) error

	// Delete removes the holdID hold, reporting whether a row was
	// actually deleted. Promotion and expiry reclamation both end
	// here; holds are the only record kind which is hard-deleted.
	Delete(ctx context.Context, holdID uuid.UUID) (bool, error)

	// DeleteExpired removes all holds which expired at or before the
	// `at` instant, returning the number of reclaimed rows. It backs
	// the lazy sweep; there is no dedicated expiry scheduler.
	DeleteExpired(ctx context.Context, at time.Time) (int64, error)
}

// HoldsQueryer lists the hold queries which are valid on both
// connections and transactions.
type HoldsQueryer interface {
	// GetByID fetches one hold by its identifier.
	GetByID(ctx context.Context, holdID uuid.UUID) (*model.Hold, error)
}

type Holds interface {
	Conn(Conn) HoldsConnQueryer
	Tx(Tx) HoldsTxQueryer
}
