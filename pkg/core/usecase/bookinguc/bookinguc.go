// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package bookinguc contains the booking UseCase which owns the
// reservation availability checks and the reservation lifecycle.
// Supported use cases are:
//  1. Searching bookable vehicles at a branch for a time window,
//  2. Checking availability of one vehicle for a time window,
//  3. Creating a reservation (with an external payment request),
//  4. Creating and promoting pending holds,
//  5. Confirming and cancelling reservations.
package bookinguc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/rentacar/pkg/core/cerr"
	"github.com/momeni/rentacar/pkg/core/log"
	"github.com/momeni/rentacar/pkg/core/model"
	"github.com/momeni/rentacar/pkg/core/notif"
	"github.com/momeni/rentacar/pkg/core/paygw"
	"github.com/momeni/rentacar/pkg/core/repo"
)

// ErrPeriodUnavailable is the caller-visible booking conflict cause.
// It deliberately carries no detail about the conflicting records, so
// other customers' reservations never leak through error messages.
var ErrPeriodUnavailable = errors.New(
	"the selected period is not available",
)

// UseCase represents the booking use case. It holds a database
// connection pool, the involved repository instances (to be guided
// with connections or transactions obtained from that pool), the
// external collaborator ports, and the booking specific settings.
type UseCase struct {
	pool           repo.Pool
	vehiclesrp     repo.Vehicles
	locationsrp    repo.Locations
	reservationsrp repo.Reservations
	holdsrp        repo.Holds
	gateway        paygw.Gateway
	notifier       notif.Notifier

	relocationBuffer time.Duration
	holdTTL          time.Duration
	currency         string
	operatorEmail    string
	now              func() time.Time
}

// New instantiates a booking use case.
// Required parameters are passed individually, so caller has to
// provision them and whenever they change, caller will notice and fix
// them due to a compilation error.
// Optional parameters are passed as a series of functional options
// in order to facilitate their validation and flexibility.
func New(
	p repo.Pool,
	v repo.Vehicles, l repo.Locations,
	r repo.Reservations, h repo.Holds,
	gw paygw.Gateway, nf notif.Notifier,
	opts ...Option,
) (*UseCase, error) {
	uc := &UseCase{
		pool:           p,
		vehiclesrp:     v,
		locationsrp:    l,
		reservationsrp: r,
		holdsrp:        h,
		gateway:        gw,
		notifier:       nf,
	}
	for _, opt := range opts {
		if err := opt(uc); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	// now, deal with defaults
	if uc.relocationBuffer == 0 {
		uc.relocationBuffer = 2 * time.Hour
	}
	if uc.holdTTL == 0 {
		uc.holdTTL = 30 * time.Minute
	}
	if uc.currency == "" {
		uc.currency = "EUR"
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	return uc, nil
}

// BookingRequest carries the validated fields of a booking attempt,
// shared by reservation creation and hold creation.
type BookingRequest struct {
	VehicleID        uuid.UUID
	PickupLocationID uuid.UUID
	ReturnLocationID uuid.UUID
	PickupAt         time.Time
	ReturnAt         time.Time
	Customer         model.Customer
	Notes            string
}

// Validate checks the request for missing or malformed fields. It
// returns a cerr.BadRequest wrapped error, so the transport layer can
// report the cause with a 400 status.
func (r *BookingRequest) Validate() error {
	return r.validate(true)
}

// validate checks the placement fields and, when withCustomer is set,
// the customer contact fields too. Availability probes carry no
// customer, so they skip the latter.
func (r *BookingRequest) validate(withCustomer bool) error {
	var missing []string
	if r.VehicleID == uuid.Nil {
		missing = append(missing, "vehicleId")
	}
	if r.PickupLocationID == uuid.Nil {
		missing = append(missing, "pickupLocationId")
	}
	if r.ReturnLocationID == uuid.Nil {
		missing = append(missing, "returnLocationId")
	}
	if withCustomer {
		if r.Customer.Name == "" {
			missing = append(missing, "customer.name")
		}
		if r.Customer.LastName == "" {
			missing = append(missing, "customer.lastName")
		}
		if r.Customer.Email == "" {
			missing = append(missing, "customer.email")
		}
		if r.Customer.Phone == "" {
			missing = append(missing, "customer.phone")
		}
	}
	if len(missing) != 0 {
		return cerr.BadRequest(fmt.Errorf(
			"missing required fields: %v", missing,
		))
	}
	if err := r.window().Validate(); err != nil {
		return cerr.BadRequest(err)
	}
	return nil
}

func (r *BookingRequest) window() model.Window {
	return model.Window{From: r.PickupAt, To: r.ReturnAt}
}

func (r *BookingRequest) candidate() model.Candidate {
	return model.Candidate{
		Window:           r.window(),
		PickupLocationID: r.PickupLocationID,
		ReturnLocationID: r.ReturnLocationID,
	}
}

// CheckAvailability use case reports whether the vehicle of the req
// request may be booked for its window, applying the direct-overlap
// and relocation-buffer rules against all pending and confirmed
// reservations and live holds of that vehicle. It has no side effects
// and takes no locks; Create repeats the check authoritatively.
func (uc *UseCase) CheckAvailability(
	ctx context.Context, req *BookingRequest,
) (available bool, err error) {
	if err := req.validate(false); err != nil {
		return false, err
	}
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		vq := uc.vehiclesrp.Conn(c)
		if _, err := vq.GetByID(ctx, req.VehicleID); err != nil {
			return err
		}
		rq := uc.reservationsrp.Conn(c)
		occ, err := rq.Occupancy(ctx, req.VehicleID, uc.now(), uuid.Nil)
		if err != nil {
			return err
		}
		available = !req.candidate().Conflicts(occ, uc.relocationBuffer)
		return nil
	})
	if err != nil {
		return false, err
	}
	return available, nil
}

// SearchRequest carries the fleet-search parameters: a pickup branch,
// a return branch, and the requested rental window.
type SearchRequest struct {
	PickupLocationID uuid.UUID
	ReturnLocationID uuid.UUID
	PickupAt         time.Time
	ReturnAt         time.Time
}

// Search use case lists all vehicles which are stationed at the
// requested pickup branch and can serve the requested window, pairing
// each with its computed price and descriptive badges. It applies the
// same conflict algorithm as CheckAvailability, relocation buffer
// included, so a vehicle offered here is never rejected afterwards by
// Create for a reason which was already known at search time.
func (uc *UseCase) Search(
	ctx context.Context, req *SearchRequest,
) ([]model.VehicleOffer, error) {
	w := model.Window{From: req.PickupAt, To: req.ReturnAt}
	if err := w.Validate(); err != nil {
		return nil, cerr.BadRequest(err)
	}
	if req.PickupLocationID == uuid.Nil || req.ReturnLocationID == uuid.Nil {
		return nil, cerr.BadRequest(errors.New(
			"pickup and return locations are required",
		))
	}
	var offers []model.VehicleOffer
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		lq := uc.locationsrp.Conn(c)
		loc, err := lq.GetByID(ctx, req.PickupLocationID)
		if err != nil {
			return err
		}
		if !loc.Active {
			return nil // inactive branches offer nothing
		}
		vq := uc.vehiclesrp.Conn(c)
		vehicles, err := vq.ListAtLocation(ctx, req.PickupLocationID)
		if err != nil {
			return err
		}
		rq := uc.reservationsrp.Conn(c)
		now := uc.now()
		cand := model.Candidate{
			Window:           w,
			PickupLocationID: req.PickupLocationID,
			ReturnLocationID: req.ReturnLocationID,
		}
		for _, v := range vehicles {
			occ, err := rq.Occupancy(ctx, v.ID, now, uuid.Nil)
			if err != nil {
				return err
			}
			if cand.Conflicts(occ, uc.relocationBuffer) {
				continue
			}
			days, total, err := v.Pricing.Quote(req.PickupAt, req.ReturnAt)
			if err != nil {
				// a mispriced vehicle is a fleet data problem, not a
				// reason to fail the whole search
				log.Warn(ctx, "skipping mispriced vehicle",
					log.ID("vehicle", v.ID), log.Err("error", err))
				continue
			}
			offers = append(offers, model.VehicleOffer{
				Vehicle:  v,
				DayCount: days,
				Total:    total,
				Badges:   badges(days, req),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offers, nil
}

// badges derives the descriptive storefront badges of an offer.
func badges(dayCount int, req *SearchRequest) []string {
	b := []string{"tier:" + string(model.TierFor(dayCount))}
	if req.PickupLocationID != req.ReturnLocationID {
		b = append(b, "one_way")
	}
	return b
}

// Create use case books the requested vehicle for the requested
// window. Within a single transaction it serializes against other
// booking attempts for the same vehicle, re-checks the availability,
// computes the price, persists the reservation in the pending state,
// and opens an external payment request. A payment gateway failure
// rolls everything back, so no half-booked state survives. On success
// it returns the persisted reservation together with the opaque
// payment handle which the customer needs for the payment step, and
// notifies the customer and the operator on a best-effort basis.
func (uc *UseCase) Create(
	ctx context.Context, req *BookingRequest,
) (rsv *model.Reservation, paymentHandle string, err error) {
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
			if err := rq.LockVehicle(ctx, req.VehicleID); err != nil {
				return fmt.Errorf("locking vehicle: %w", err)
			}
			now := uc.now()
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
			code, err := model.NewCode()
			if err != nil {
				return fmt.Errorf("generating code: %w", err)
			}
			r := &model.Reservation{
				ID:               uuid.New(),
				Code:             code,
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
				Status:           model.StatusPending,
				PaymentStatus:    model.PaymentUnpaid,
				CreatedAt:        now,
			}
			if err := rq.Create(ctx, r); err != nil {
				return err
			}
			pr, err := uc.gateway.CreatePaymentRequest(
				ctx, total, uc.currency, map[string]string{
					paygw.MetaReservationID:   r.ID.String(),
					paygw.MetaReservationCode: r.Code,
				},
			)
			if err != nil {
				return cerr.BadGateway(fmt.Errorf(
					"opening payment request: %w", err,
				))
			}
			if err := rq.SetPaymentSession(ctx, r.ID, pr.ID); err != nil {
				return err
			}
			r.PaymentSessionID = pr.ID
			rsv = r
			paymentHandle = pr.ClientHandle
			return nil
		})
	})
	if err != nil {
		return nil, "", err
	}
	uc.notifyBooked(ctx, rsv)
	return rsv, paymentHandle, nil
}

// checkStations verifies that both involved branches exist and accept
// bookings.
func (uc *UseCase) checkStations(
	ctx context.Context, c repo.Conn, req *BookingRequest,
) error {
	lq := uc.locationsrp.Conn(c)
	lids := []uuid.UUID{req.PickupLocationID}
	if req.ReturnLocationID != req.PickupLocationID {
		lids = append(lids, req.ReturnLocationID)
	}
	for _, lid := range lids {
		loc, err := lq.GetByID(ctx, lid)
		if err != nil {
			return err
		}
		if !loc.Active {
			return cerr.BadRequest(fmt.Errorf(
				"location %q is not accepting bookings", loc.Name,
			))
		}
	}
	return nil
}

// notifyBooked sends the best-effort booking notifications. Failures
// are logged and swallowed; the booking already succeeded.
func (uc *UseCase) notifyBooked(ctx context.Context, r *model.Reservation) {
	subject := "Reservation " + r.Code + " received"
	body := fmt.Sprintf(
		"<p>Dear %s %s,</p><p>We received your reservation %s."+
			" It will be confirmed as soon as the payment completes.</p>",
		r.Customer.Name, r.Customer.LastName, r.Code,
	)
	if err := uc.notifier.Send(ctx, r.Customer.Email, subject, body); err != nil {
		log.Warn(ctx, "customer booking notification failed",
			log.ID("reservation", r.ID), log.Err("error", err))
	}
	if uc.operatorEmail == "" {
		return
	}
	opBody := fmt.Sprintf(
		"<p>New pending reservation %s for vehicle %s,"+
			" %s to %s, total %d %s.</p>",
		r.Code, r.VehicleID,
		r.PickupAt.Format(time.RFC3339), r.ReturnAt.Format(time.RFC3339),
		r.TotalAmount, r.Currency,
	)
	err := uc.notifier.Send(
		ctx, uc.operatorEmail, "New reservation "+r.Code, opBody,
	)
	if err != nil {
		log.Warn(ctx, "operator booking notification failed",
			log.ID("reservation", r.ID), log.Err("error", err))
	}
}
