// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package model defines the inner most layer of the Clean Architecture
// containing the business-level models, also called entities or domain.
// This layer may not depend on outter layers, while all other layers
// may depend on it.
// By the way, it is acceptable to annotate structs in this package with
// multiple frameworks dependent tags (e.g., as required by ORM
// libraries) since adding more tags does not complicate definition of
// a struct, but can prevent unnecessary structs duplication.
package model

import "github.com/google/uuid"

// Location models a rental branch where vehicles may be picked up or
// returned. Locations are managed by the back office and are read-only
// as far as the reservation engine is concerned.
type Location struct {
	ID      uuid.UUID // location identifier
	Name    string    // human-readable branch name
	Address string    // postal address of the branch
	Active  bool      // inactive branches accept no new bookings
}
