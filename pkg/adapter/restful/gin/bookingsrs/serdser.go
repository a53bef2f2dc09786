// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bookingsrs

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/momeni/rentacar/pkg/adapter/restful/gin/serdser"
	"github.com/momeni/rentacar/pkg/core/model"
	"github.com/momeni/rentacar/pkg/core/usecase/bookinguc"
)

type rawBookingReq struct {
	VehicleID        string `json:"vehicle_id" binding:"required,uuid"`
	PickupLocationID string `json:"pickup_location_id" binding:"required,uuid"`
	ReturnLocationID string `json:"return_location_id" binding:"required,uuid"`
	PickupAt         string `json:"pickup_at" binding:"required"`
	ReturnAt         string `json:"return_at" binding:"required"`
	Customer         struct {
		Name     string `json:"name" binding:"required"`
		LastName string `json:"last_name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Phone    string `json:"phone" binding:"required"`
	} `json:"customer" binding:"required"`
	Notes string `json:"notes" binding:"omitempty,max=1000"`
}

func (rs *resource) DserBookingReq(
	c *gin.Context,
) *bookinguc.BookingRequest {
	req := &rawBookingReq{}
	if ok := serdser.Bind(c, req, binding.JSON); !ok {
		return nil
	}
	val := &bookinguc.BookingRequest{
		Customer: model.Customer{
			Name:     req.Customer.Name,
			LastName: req.Customer.LastName,
			Email:    req.Customer.Email,
			Phone:    req.Customer.Phone,
		},
		Notes: req.Notes,
	}
	var errs map[string][]string
	val.VehicleID = dserUUID(&errs, "vehicle_id", req.VehicleID)
	val.PickupLocationID = dserUUID(
		&errs, "pickup_location_id", req.PickupLocationID,
	)
	val.ReturnLocationID = dserUUID(
		&errs, "return_location_id", req.ReturnLocationID,
	)
	val.PickupAt = dserTime(&errs, "pickup_at", req.PickupAt)
	val.ReturnAt = dserTime(&errs, "return_at", req.ReturnAt)
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return nil
	}
	return val
}

type rawReservationIDReq struct {
	ReservationID string `uri:"rid" binding:"required,uuid"`
}

func (rs *resource) DserReservationID(c *gin.Context) *uuid.UUID {
	req := &rawReservationIDReq{}
	if ok := serdser.BindURI(c, req); !ok {
		return nil
	}
	var errs map[string][]string
	rid := dserUUID(&errs, "rid", req.ReservationID)
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return nil
	}
	return &rid
}

type rawHoldIDReq struct {
	HoldID string `uri:"hid" binding:"required,uuid"`
}

func (rs *resource) DserHoldID(c *gin.Context) *uuid.UUID {
	req := &rawHoldIDReq{}
	if ok := serdser.BindURI(c, req); !ok {
		return nil
	}
	var errs map[string][]string
	hid := dserUUID(&errs, "hid", req.HoldID)
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return nil
	}
	return &hid
}

func dserUUID(errs *map[string][]string, name, value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		serdser.AddErr(errs, name, "Param "+name+" is not UUID.")
		return uuid.Nil
	}
	return id
}

func dserTime(errs *map[string][]string, name, value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		serdser.AddErr(
			errs, name, "Param "+name+" is not an RFC 3339 time.",
		)
		return time.Time{}
	}
	return t
}

type customerReply struct {
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type reservationReply struct {
	ID               uuid.UUID           `json:"id"`
	Code             string              `json:"code"`
	VehicleID        uuid.UUID           `json:"vehicle_id"`
	PickupLocationID uuid.UUID           `json:"pickup_location_id"`
	ReturnLocationID uuid.UUID           `json:"return_location_id"`
	PickupAt         time.Time           `json:"pickup_at"`
	ReturnAt         time.Time           `json:"return_at"`
	Customer         customerReply       `json:"customer"`
	Notes            string              `json:"notes,omitempty"`
	DayCount         int                 `json:"day_count"`
	TotalAmount      int64               `json:"total_amount"`
	Currency         string              `json:"currency"`
	Status           model.Status        `json:"status"`
	PaymentStatus    model.PaymentStatus `json:"payment_status"`
	PaymentHandle    string              `json:"payment_handle,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	ConfirmedAt      *time.Time          `json:"confirmed_at,omitempty"`
	CancelledAt      *time.Time          `json:"cancelled_at,omitempty"`
}

// SerReservation serializes a reservation for the REST reply. The
// paymentHandle is only present right after creation, since it is the
// opaque value which the customer needs for the payment step; it is
// never persisted or reported by later lookups.
func SerReservation(
	r *model.Reservation, paymentHandle string,
) *reservationReply {
	return &reservationReply{
		ID:               r.ID,
		Code:             r.Code,
		VehicleID:        r.VehicleID,
		PickupLocationID: r.PickupLocationID,
		ReturnLocationID: r.ReturnLocationID,
		PickupAt:         r.PickupAt,
		ReturnAt:         r.ReturnAt,
		Customer: customerReply{
			Name:     r.Customer.Name,
			LastName: r.Customer.LastName,
			Email:    r.Customer.Email,
			Phone:    r.Customer.Phone,
		},
		Notes:         r.Notes,
		DayCount:      r.DayCount,
		TotalAmount:   r.TotalAmount,
		Currency:      r.Currency,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		PaymentHandle: paymentHandle,
		CreatedAt:     r.CreatedAt,
		ConfirmedAt:   r.ConfirmedAt,
		CancelledAt:   r.CancelledAt,
	}
}

type holdReply struct {
	ID            uuid.UUID `json:"id"`
	VehicleID     uuid.UUID `json:"vehicle_id"`
	PickupAt      time.Time `json:"pickup_at"`
	ReturnAt      time.Time `json:"return_at"`
	DayCount      int       `json:"day_count"`
	TotalAmount   int64     `json:"total_amount"`
	Currency      string    `json:"currency"`
	PaymentHandle string    `json:"payment_handle,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// SerHold serializes a hold for the REST reply.
func SerHold(h *model.Hold, paymentHandle string) *holdReply {
	return &holdReply{
		ID:            h.ID,
		VehicleID:     h.VehicleID,
		PickupAt:      h.PickupAt,
		ReturnAt:      h.ReturnAt,
		DayCount:      h.DayCount,
		TotalAmount:   h.TotalAmount,
		Currency:      h.Currency,
		PaymentHandle: paymentHandle,
		ExpiresAt:     h.ExpiresAt,
	}
}
