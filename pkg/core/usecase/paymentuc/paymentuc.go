// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package paymentuc contains the payment reconciliation UseCase which
// bridges asynchronous external payment outcomes back into the
// reservation lifecycle. Webhook deliveries are assumed to be
// at-least-once and possibly out of order, so the whole package is
// built around idempotent application of verified events.
package paymentuc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/rentacar/pkg/core/log"
	"github.com/momeni/rentacar/pkg/core/model"
	"github.com/momeni/rentacar/pkg/core/paygw"
	"github.com/momeni/rentacar/pkg/core/repo"
)

// Lifecycle lists the reservation lifecycle transitions which a
// reconciled payment event may trigger. It is implemented by the
// booking use case; the narrowed interface keeps this package
// independent of the rest of the booking surface and lets tests
// substitute a recording fake.
type Lifecycle interface {
	// MarkConfirmed confirms a pending reservation, idempotently.
	MarkConfirmed(ctx context.Context, reservationID uuid.UUID, paymentRef string) (*model.Reservation, error)

	// MarkPaymentFailed records a failed payment attempt on a pending
	// reservation.
	MarkPaymentFailed(ctx context.Context, reservationID uuid.UUID) error

	// PromoteHold converts a live hold into a reservation; a non-empty
	// paymentRef makes it confirmed and paid directly.
	PromoteHold(ctx context.Context, holdID uuid.UUID, paymentRef string) (*model.Reservation, error)
}

// UseCase represents the payment reconciliation use case. It holds a
// database connection pool, the applied-events repository (the dedupe
// set), the payment gateway port for event verification, and the
// lifecycle transitions port.
type UseCase struct {
	pool     repo.Pool
	eventsrp repo.PaymentEvents
	gateway  paygw.Gateway
	booking  Lifecycle
}

// New instantiates a payment reconciliation use case.
func New(
	p repo.Pool, e repo.PaymentEvents,
	gw paygw.Gateway, b Lifecycle,
) *UseCase {
	return &UseCase{pool: p, eventsrp: e, gateway: gw, booking: b}
}

// Reconcile use case verifies and applies one raw webhook delivery.
//
// Verification fails closed: an event whose signature cannot be
// established causes zero state change and the returned error wraps
// paygw.ErrVerification (the transport layer logs the cause and
// answers without revealing it). Verified events are deduplicated by
// their external event id through a persisted first-writer-wins set,
// so reapplying an identical delivery is a no-op. Events which report
// success confirm the referenced reservation or promote the
// referenced hold; failure reports mark the payment as failed; events
// with an unknown type or no recognizable reference are acknowledged
// and ignored. Every applied transition is itself idempotent and never
// downgrades a confirmed reservation, giving a second safety layer
// under concurrent duplicate deliveries.
func (uc *UseCase) Reconcile(
	ctx context.Context, rawPayload []byte, signature string,
) error {
	ev, err := uc.gateway.VerifyEvent(rawPayload, signature)
	if err != nil {
		return err
	}
	applied, err := uc.alreadyApplied(ctx, ev.ID)
	if err != nil {
		return err
	}
	if applied {
		log.Debug(ctx, "skipping already applied payment event",
			slogEventAttrs(ev)...)
		return nil
	}
	if err := uc.apply(ctx, ev); err != nil {
		return err
	}
	return uc.markApplied(ctx, ev.ID)
}

// apply dispatches the side effect of one verified, not yet applied
// event.
func (uc *UseCase) apply(ctx context.Context, ev *paygw.Event) error {
	switch ev.Type {
	case paygw.EventPaymentSucceeded:
		if rid := ev.Reservation(); rid != "" {
			id, err := uuid.Parse(rid)
			if err != nil {
				log.Warn(ctx, "payment event with malformed reservation id",
					slogEventAttrs(ev)...)
				return nil
			}
			_, err = uc.booking.MarkConfirmed(ctx, id, ev.PaymentRef)
			return ignoreUnknown(ctx, ev, err)
		}
		if hid := ev.Hold(); hid != "" {
			id, err := uuid.Parse(hid)
			if err != nil {
				log.Warn(ctx, "payment event with malformed hold id",
					slogEventAttrs(ev)...)
				return nil
			}
			_, err = uc.booking.PromoteHold(ctx, id, ev.PaymentRef)
			return ignoreUnknown(ctx, ev, err)
		}
		log.Warn(ctx, "payment success event without reference",
			slogEventAttrs(ev)...)
		return nil
	case paygw.EventPaymentFailed:
		if rid := ev.Reservation(); rid != "" {
			id, err := uuid.Parse(rid)
			if err != nil {
				return nil
			}
			return ignoreUnknown(
				ctx, ev, uc.booking.MarkPaymentFailed(ctx, id),
			)
		}
		// a failed payment for a hold needs no action; the hold
		// expires on its own
		return nil
	default:
		log.Debug(ctx, "ignoring payment event of unhandled type",
			slogEventAttrs(ev)...)
		return nil
	}
}

// alreadyApplied consults the dedupe set outside of any transaction.
func (uc *UseCase) alreadyApplied(
	ctx context.Context, eventID string,
) (applied bool, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		applied, err = uc.eventsrp.Conn(c).Applied(ctx, eventID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("querying applied events: %w", err)
	}
	return applied, nil
}

// markApplied records the event id after its side effect succeeded.
// If two deliveries of one event race past alreadyApplied, both reach
// the (idempotent) side effect but only the first insert here reports
// true; the ordering guarantees that an event is never marked applied
// while its side effect is lost.
func (uc *UseCase) markApplied(ctx context.Context, eventID string) error {
	return uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			_, err := uc.eventsrp.Tx(tx).Apply(ctx, eventID, time.Now())
			return err
		})
	})
}
