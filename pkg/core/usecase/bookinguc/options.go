// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bookinguc

import (
	"errors"
	"fmt"
	"time"
)

// Option is a functional option for the booking use case.
type Option func(uc *UseCase) error

// WithRelocationBuffer option configures the minimum idle time which
// must separate a vehicle's return at one branch from its next pickup
// at a different branch. This option may be passed to the New()
// function; without it, the buffer defaults to two hours.
func WithRelocationBuffer(buffer time.Duration) Option {
	return func(uc *UseCase) error {
		if b := int64(buffer); b <= 0 {
			return fmt.Errorf("buffer (%d) is not positive", b)
		}
		if uc.relocationBuffer != 0 {
			return errors.New("buffer is already configured")
		}
		uc.relocationBuffer = buffer
		return nil
	}
}

// WithHoldTTL option configures how long a pending hold occupies its
// vehicle window before expiring. This option may be passed to the
// New() function; without it, the TTL defaults to thirty minutes.
func WithHoldTTL(ttl time.Duration) Option {
	return func(uc *UseCase) error {
		if t := int64(ttl); t <= 0 {
			return fmt.Errorf("ttl (%d) is not positive", t)
		}
		if uc.holdTTL != 0 {
			return errors.New("ttl is already configured")
		}
		uc.holdTTL = ttl
		return nil
	}
}

// WithCurrency option configures the ISO-4217 currency code which all
// quotes and payment requests use. Defaults to EUR.
func WithCurrency(code string) Option {
	return func(uc *UseCase) error {
		if len(code) != 3 {
			return fmt.Errorf("currency code %q is not ISO-4217", code)
		}
		if uc.currency != "" {
			return errors.New("currency is already configured")
		}
		uc.currency = code
		return nil
	}
}

// WithOperatorEmail option configures the back-office address which
// receives the operator copies of booking and cancellation
// notifications. Without it, operator notifications are skipped.
func WithOperatorEmail(addr string) Option {
	return func(uc *UseCase) error {
		if addr == "" {
			return errors.New("operator email is empty")
		}
		if uc.operatorEmail != "" {
			return errors.New("operator email is already configured")
		}
		uc.operatorEmail = addr
		return nil
	}
}

// WithClock option overrides the wall clock, enabling deterministic
// tests of expiry and transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) error {
		if now == nil {
			return errors.New("clock is nil")
		}
		if uc.now != nil {
			return errors.New("clock is already configured")
		}
		uc.now = now
		return nil
	}
}
