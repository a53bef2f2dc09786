// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"fmt"
	"time"
)

// Tier identifies one of the four day-count brackets of a pricing
// schedule. Each bracket carries its own daily rate.
type Tier string

// These constants enumerate the pricing tiers. Brackets are selected
// by an inclusive upper bound on the rental day count, so a 3-day
// rental is billed with the Tier1To3 rate while a 4-day rental is
// billed with the Tier4To7 rate.
const (
	Tier1To3   Tier = "1_3"     // 1 to 3 days
	Tier4To7   Tier = "4_7"     // 4 to 7 days
	Tier8To14  Tier = "8_14"    // 8 to 14 days
	Tier15Plus Tier = "15_plus" // 15 days or more
)

// PricingSchedule holds the four daily rates of a vehicle, one per
// day-count bracket, in minor currency units.
type PricingSchedule struct {
	Daily1To3   int64 `gorm:"column:daily_1_3"`
	Daily4To7   int64 `gorm:"column:daily_4_7"`
	Daily8To14  int64 `gorm:"column:daily_8_14"`
	Daily15Plus int64 `gorm:"column:daily_15_plus"`
}

// InvalidPricingError indicates that the pricing schedule has no
// usable daily rate for the selected tier, that is, the rate is
// absent or non-positive. Such a vehicle may not be quoted at all.
type InvalidPricingError struct {
	Tier Tier  // the selected tier
	Rate int64 // the offending rate value
}

// Error implements the error interface.
func (e *InvalidPricingError) Error() string {
	return fmt.Sprintf(
		"pricing: tier %s has invalid daily rate %d", e.Tier, e.Rate,
	)
}

// TierFor returns the pricing tier which bills a rental of the given
// whole number of days.
func TierFor(dayCount int) Tier {
	switch {
	case dayCount <= 3:
		return Tier1To3
	case dayCount <= 7:
		return Tier4To7
	case dayCount <= 14:
		return Tier8To14
	default:
		return Tier15Plus
	}
}

// Rate returns the daily rate of the t tier.
func (ps PricingSchedule) Rate(t Tier) int64 {
	switch t {
	case Tier1To3:
		return ps.Daily1To3
	case Tier4To7:
		return ps.Daily4To7
	case Tier8To14:
		return ps.Daily8To14
	default:
		return ps.Daily15Plus
	}
}

// DayCount computes the billable number of rental days between the
// pickup and ret times. Dates are compared at day granularity, so the
// time-of-day components do not contribute; a same-day pickup and
// return counts as one day, and the count never falls below one.
func DayCount(pickup, ret time.Time) int {
	py, pm, pd := pickup.Date()
	ry, rm, rd := ret.Date()
	p := time.Date(py, pm, pd, 0, 0, 0, 0, time.UTC)
	r := time.Date(ry, rm, rd, 0, 0, 0, 0, time.UTC)
	days := int(r.Sub(p).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// Quote computes the billable day count and the total price of renting
// a vehicle with the ps pricing schedule from pickup until ret.
// The total is the day count times the daily rate of the matching
// tier, in minor currency units. If the matching tier has an absent or
// non-positive rate, an *InvalidPricingError will be returned.
func (ps PricingSchedule) Quote(pickup, ret time.Time) (
	dayCount int, total int64, err error,
) {
	dayCount = DayCount(pickup, ret)
	tier := TierFor(dayCount)
	rate := ps.Rate(tier)
	if rate <= 0 {
		return 0, 0, &InvalidPricingError{Tier: tier, Rate: rate}
	}
	return dayCount, int64(dayCount) * rate, nil
}
