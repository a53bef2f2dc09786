// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bookinguc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/momeni/rentacar/pkg/core/cerr"
	"github.com/momeni/rentacar/pkg/core/log"
	"github.com/momeni/rentacar/pkg/core/model"
	"github.com/momeni/rentacar/pkg/core/paygw"
	"github.com/momeni/rentacar/pkg/core/repo"
)

// ErrHoldExpired is the caller-visible cause of a promotion attempt
// against a hold whose expiry time has passed.
var ErrHoldExpired = errors.New("the hold has expired")

// CreateHold use case reserves the requested vehicle window with a
// time-boxed draft instead of a durable reservation, for flows which
// reserve first and collect the payment second. The hold passes the
// same locking, conflict check, and pricing as Create, occupies the
// same conflict space while it is live, and carries the external
// payment session whose completion will promote it. If the payment
// never completes, the hold expires by itself and the window reopens;
// nothing needs to clean it up eagerly.
func (uc *UseCase) CreateHold(
	ctx context.Context, req *BookingRequest,
) (hold *model.Hold, paymentHandle string, err error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		if err := uc.checkStations(ctx, c, req); err != nil {
			return err
		}
		vq := uc.vehiclesrp.Conn(c)
		vehicle, err := vq.GetByID(ctx, req.VehicleID)
		if err != nil {
			return err
		}
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			rq := uc.reservationsrp.Tx(tx)
			hq := uc.holdsrp.Tx(tx)
			if err := rq.LockVehicle(ctx, req.VehicleID); err != nil {
				return fmt.Errorf("locking vehicle: %w", err)
			}
			now := uc.now()
			// opportunistic sweep; expiry has no dedicated scheduler
			if n, err := hq.DeleteExpired(ctx, now); err != nil {
				return fmt.Errorf("sweeping expired holds: %w", err)
			} else if n > 0 {
				log.Info(ctx, "reclaimed expired holds",
					slog.Int64("count", n))
			}
			occ, err := rq.Occupancy(ctx, req.VehicleID, now, uuid.Nil)
			if err != nil {
				return fmt.Errorf("fetching occupancy: %w", err)
			}
			if req.candidate().Conflicts(occ, uc.relocationBuffer) {
				return cerr.Conflict(ErrPeriodUnavailable)
			}
			days, total, err := vehicle.Pricing.Quote(
				req.PickupAt, req.ReturnAt,
			)
			if err != nil {
				return fmt.Errorf("quoting: %w", err)
			}
			h := &model.Hold{
				ID:               uuid.New(),
				VehicleID:        req.VehicleID,
				PickupLocationID: req.PickupLocationID,
				ReturnLocationID: req.ReturnLocationID,
				PickupAt:         req.PickupAt,
				ReturnAt:         req.ReturnAt,
				Customer:         req.Customer,
				Notes:            req.Notes,
				DayCount:         days,
				TotalAmount:      total,
				Currency:         uc.currency,
				CreatedAt:        now,
				ExpiresAt:        now.Add(uc.holdTTL),
			}
			pr, err := uc.gateway.CreatePaymentRequest(
				ctx, total, uc.currency, map[string]string{
					paygw.MetaHoldID: h.ID.String(),
				},
			)
			if err != nil {
				return cerr.BadGateway(fmt.Errorf(
					"opening payment request: %w", err,
				))
			}
			h.PaymentSessionID = pr.ID
			if err := hq.Create(ctx, h); err != nil {
				return err
			}
			hold = h
			paymentHandle = pr.ClientHandle
			return nil
		})
	})
	if err != nil {
		return nil, "", err
	}
	return hold, paymentHandle, nil
}

// PromoteHold use case converts a live hold into a durable
// reservation and removes the hold, both in one transaction. With a
// non-empty paymentRef (the payment-success path) the reservation is
// born confirmed and paid; with an empty one it is born pending and
// unpaid, awaiting the usual confirmation. Promotion of an expired
// hold fails with a gone error and changes nothing.
func (uc *UseCase) PromoteHold(
	ctx context.Context, holdID uuid.UUID, paymentRef string,
) (rsv *model.Reservation, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			hq := uc.holdsrp.Tx(tx)
			h, err := hq.GetByID(ctx, holdID)
			if err != nil {
				return err
			}
			rq := uc.reservationsrp.Tx(tx)
			if err := rq.LockVehicle(ctx, h.VehicleID); err != nil {
				return fmt.Errorf("locking vehicle: %w", err)
			}
			now := uc.now()
			if h.Expired(now) {
				return cerr.Gone(ErrHoldExpired)
			}
			occ, err := rq.Occupancy(ctx, h.VehicleID, now, h.ID)
			if err != nil {
				return fmt.Errorf("fetching occupancy: %w", err)
			}
			cand := model.Candidate{
				Window:           h.Window(),
				PickupLocationID: h.PickupLocationID,
				ReturnLocationID: h.ReturnLocationID,
			}
			if cand.Conflicts(occ, uc.relocationBuffer) {
				// cannot happen while the hold blocked its window,
				// unless the hold briefly expired and something else
				// was booked before this promotion ran
				return cerr.Conflict(ErrPeriodUnavailable)
			}
			code, err := model.NewCode()
			if err != nil {
				return fmt.Errorf("generating code: %w", err)
			}
			r := &model.Reservation{
				ID:               uuid.New(),
				Code:             code,
				VehicleID:        h.VehicleID,
				PickupLocationID: h.PickupLocationID,
				ReturnLocationID: h.ReturnLocationID,
				PickupAt:         h.PickupAt,
				ReturnAt:         h.ReturnAt,
				Customer:         h.Customer,
				Notes:            h.Notes,
				DayCount:         h.DayCount,
				TotalAmount:      h.TotalAmount,
				Currency:         h.Currency,
				Status:           model.StatusPending,
				PaymentStatus:    model.PaymentUnpaid,
				PaymentSessionID: h.PaymentSessionID,
				CreatedAt:        now,
			}
			if paymentRef != "" {
				t := now
				r.Status = model.StatusConfirmed
				r.PaymentStatus = model.PaymentPaid
				r.PaymentRef = paymentRef
				r.ConfirmedAt = &t
			}
			if err := rq.Create(ctx, r); err != nil {
				return err
			}
			if _, err := hq.Delete(ctx, h.ID); err != nil {
				return fmt.Errorf("removing promoted hold: %w", err)
			}
			rsv = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if rsv.Status == model.StatusConfirmed {
		uc.notifyConfirmed(ctx, rsv)
	} else {
		uc.notifyBooked(ctx, rsv)
	}
	return rsv, nil
}
