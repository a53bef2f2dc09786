// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bookinguc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/rentacar/pkg/core/cerr"
	"github.com/momeni/rentacar/pkg/core/log"
	"github.com/momeni/rentacar/pkg/core/model"
	"github.com/momeni/rentacar/pkg/core/repo"
)

// MarkConfirmed use case transitions a pending reservation to the
// confirmed and paid state, storing the external payment reference.
// It is idempotent: confirming an already confirmed reservation with
// the same reference is a no-op which returns the unchanged
// reservation, so at-least-once webhook deliveries are harmless. A
// confirmed reservation is never downgraded. Any other source state
// fails with a conflict error.
func (uc *UseCase) MarkConfirmed(
	ctx context.Context, reservationID uuid.UUID, paymentRef string,
) (rsv *model.Reservation, err error) {
	var confirmed bool
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			rq := uc.reservationsrp.Tx(tx)
			r, err := rq.GetByID(ctx, reservationID)
			if err != nil {
				return err
			}
			if r.Status == model.StatusConfirmed {
				rsv = r // repeated delivery, nothing to do
				return nil
			}
			if !model.CanTransition(r.Status, model.StatusConfirmed) {
				return cerr.Conflict(&model.InvalidTransitionError{
					From: r.Status, To: model.StatusConfirmed,
				})
			}
			rsv, err = rq.UpdateStatus(ctx, r.ID, repo.StatusUpdate{
				Status:        model.StatusConfirmed,
				PaymentStatus: model.PaymentPaid,
				PaymentRef:    paymentRef,
				At:            uc.now(),
			})
			confirmed = err == nil
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if confirmed {
		uc.notifyConfirmed(ctx, rsv)
	}
	return rsv, nil
}

// MarkPaymentFailed use case records a failed payment attempt on a
// still pending reservation. The lifecycle status stays pending, so
// the customer may retry the payment while the time slot is theirs.
// Confirmed reservations are left untouched.
func (uc *UseCase) MarkPaymentFailed(
	ctx context.Context, reservationID uuid.UUID,
) error {
	return uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			rq := uc.reservationsrp.Tx(tx)
			r, err := rq.GetByID(ctx, reservationID)
			if err != nil {
				return err
			}
			if r.Status != model.StatusPending {
				return nil
			}
			_, err = rq.UpdateStatus(ctx, r.ID, repo.StatusUpdate{
				Status:        model.StatusPending,
				PaymentStatus: model.PaymentFailed,
				At:            uc.now(),
			})
			return err
		})
	})
}

// Cancel use case transitions a pending or confirmed reservation to
// the cancelled state. The row survives with its full detail; no
// refund is initiated here (refunds are an external payment gateway
// operation). The operator is notified on a best-effort basis.
func (uc *UseCase) Cancel(
	ctx context.Context, reservationID uuid.UUID,
) (rsv *model.Reservation, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			rq := uc.reservationsrp.Tx(tx)
			r, err := rq.GetByID(ctx, reservationID)
			if err != nil {
				return err
			}
			if !model.CanTransition(r.Status, model.StatusCancelled) {
				return cerr.Conflict(&model.InvalidTransitionError{
					From: r.Status, To: model.StatusCancelled,
				})
			}
			rsv, err = rq.UpdateStatus(ctx, r.ID, repo.StatusUpdate{
				Status:        model.StatusCancelled,
				PaymentStatus: r.PaymentStatus,
				At:            uc.now(),
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	uc.notifyCancelled(ctx, rsv)
	return rsv, nil
}

// GetByCode use case fetches one reservation by its human-shareable
// code, backing the customer-facing status lookup.
func (uc *UseCase) GetByCode(
	ctx context.Context, code string,
) (rsv *model.Reservation, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		rq := uc.reservationsrp.Conn(c)
		rsv, err = rq.GetByCode(ctx, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rsv, nil
}

func (uc *UseCase) notifyConfirmed(ctx context.Context, r *model.Reservation) {
	subject := "Reservation " + r.Code + " confirmed"
	body := fmt.Sprintf(
		"<p>Dear %s %s,</p><p>Your reservation %s is confirmed."+
			" Pickup at %s.</p>",
		r.Customer.Name, r.Customer.LastName, r.Code,
		r.PickupAt.Format(time.RFC3339),
	)
	if err := uc.notifier.Send(ctx, r.Customer.Email, subject, body); err != nil {
		log.Warn(ctx, "confirmation notification failed",
			log.ID("reservation", r.ID), log.Err("error", err))
	}
}

func (uc *UseCase) notifyCancelled(ctx context.Context, r *model.Reservation) {
	if uc.operatorEmail == "" {
		return
	}
	body := fmt.Sprintf(
		"<p>Reservation %s was cancelled.</p>"+
			"<p>Vehicle: %s<br>Window: %s to %s<br>"+
			"Customer: %s %s (%s, %s)<br>Total: %d %s<br>"+
			"Payment status: %s</p>",
		r.Code, r.VehicleID,
		r.PickupAt.Format(time.RFC3339), r.ReturnAt.Format(time.RFC3339),
		r.Customer.Name, r.Customer.LastName,
		r.Customer.Email, r.Customer.Phone,
		r.TotalAmount, r.Currency, r.PaymentStatus,
	)
	err := uc.notifier.Send(
		ctx, uc.operatorEmail, "Reservation "+r.Code+" cancelled", body,
	)
	if err != nil {
		log.Warn(ctx, "cancellation notification failed",
			log.ID("reservation", r.ID), log.Err("error", err))
	}
}
