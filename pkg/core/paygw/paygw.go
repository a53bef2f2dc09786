// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package paygw exports the expected interface of the external payment
// gateway collaborator. The concrete payment provider lives entirely
// in the adapter layer; the use cases layer only depends on the
// Gateway port defined here, so providers may be swapped without
// touching the booking or reconciliation logic.
package paygw

import (
	"context"
	"errors"
	"fmt"
)

// metadata keys which this project attaches to payment requests and
// expects back on webhook events.
const (
	MetaReservationID   = "reservation_id"
	MetaReservationCode = "reservation_code"
	MetaHoldID          = "hold_id"
)

// Event types which the reconciliation flow reacts to. Any other type
// is acknowledged and ignored.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

// ErrVerification indicates a webhook event whose authenticity could
// not be established. Such events must be rejected without any state
// change; the cause may be logged server-side but is never revealed
// to the webhook caller.
var ErrVerification = errors.New("event verification failed")

// PaymentRequest identifies an opened payment session at the external
// provider. The ClientHandle is an opaque value (e.g., a client secret
// or a redirect URL) which the storefront passes on to the customer's
// browser to complete the payment.
type PaymentRequest struct {
	ID           string // provider-side payment session identifier
	ClientHandle string // opaque handle for the client-side payment step
}

// Event is a verified webhook event as reported by the provider.
type Event struct {
	ID         string // provider-side event identifier, dedupe key
	Type       string // e.g., payment.succeeded
	PaymentRef string // provider-side payment identifier
	Metadata   map[string]string
}

// Reservation returns the reservation id carried in the e event's
// metadata, or an empty string if the event settles a hold or belongs
// to no record of ours.
func (e *Event) Reservation() string {
	return e.Metadata[MetaReservationID]
}

// Hold returns the hold id carried in the e event's metadata, or an
// empty string if the event settles a reservation directly.
func (e *Event) Hold() string {
	return e.Metadata[MetaHoldID]
}

// Gateway represents the expectations from the external payment
// provider.
type Gateway interface {
	// CreatePaymentRequest opens a payment session for the given
	// amount of minor currency units, tagging it with the metadata so
	// later webhook events can be traced back to the reservation which
	// they settle. Transport or provider failures are returned as
	// plain errors and must be treated as retryable by callers.
	CreatePaymentRequest(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (*PaymentRequest, error)

	// VerifyEvent checks the authenticity of a raw webhook payload
	// against its signature header and decodes it. An event which
	// cannot be verified is reported with an error wrapping
	// ErrVerification and must cause zero state change.
	VerifyEvent(rawPayload []byte, signature string) (*Event, error)
}

// Verification wraps err as a verification failure, so callers can
// detect it with errors.Is(err, ErrVerification).
func Verification(err error) error {
	return fmt.Errorf("%w: %w", ErrVerification, err)
}
