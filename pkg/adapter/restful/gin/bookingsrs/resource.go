// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package bookingsrs realizes the reservations and holds resources,
// allowing the booking lifecycle REST APIs to be accepted and
// delegated to the booking use cases respectively.
package bookingsrs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momeni/rentacar/pkg/adapter/restful/gin/serdser"
	"github.com/momeni/rentacar/pkg/core/usecase/bookinguc"
)

type resource struct {
	booking *bookinguc.UseCase
}

// Register instantiates a resource adapting the booking use case
// instance with the relevant REST APIs including:
//  1. POST request to /api/rentacar/v1/reservations
//     in order to book a vehicle and open its payment session.
//  2. GET request to /api/rentacar/v1/reservations/:code
//     in order to look a reservation up by its shareable code.
//  3. DELETE request to /api/rentacar/v1/reservations/:rid
//     in order to cancel a reservation.
//  4. POST request to /api/rentacar/v1/holds
//     in order to place a short-lived hold on a vehicle.
//  5. POST request to /api/rentacar/v1/holds/:hid/promote
//     in order to promote a live hold into a reservation.
func Register(r *gin.RouterGroup, booking *bookinguc.UseCase) {
	rs := &resource{booking: booking}
	r.POST("reservations", rs.CreateReservation)
	r.GET("reservations/:code", rs.GetReservation)
	r.DELETE("reservations/:rid", rs.CancelReservation)
	r.POST("holds", rs.CreateHold)
	r.POST("holds/:hid/promote", rs.PromoteHold)
}

func (rs *resource) CreateReservation(c *gin.Context) {
	req := rs.DserBookingReq(c)
	if req == nil {
		return
	}
	rsv, handle, err := rs.booking.Create(c, req)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, SerReservation(rsv, handle))
}

func (rs *resource) GetReservation(c *gin.Context) {
	code := c.Param("code")
	rsv, err := rs.booking.GetByCode(c, code)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SerReservation(rsv, ""))
}

func (rs *resource) CancelReservation(c *gin.Context) {
	rid := rs.DserReservationID(c)
	if rid == nil {
		return
	}
	rsv, err := rs.booking.Cancel(c, *rid)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SerReservation(rsv, ""))
}

func (rs *resource) CreateHold(c *gin.Context) {
	req := rs.DserBookingReq(c)
	if req == nil {
		return
	}
	hold, handle, err := rs.booking.CreateHold(c, req)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, SerHold(hold, handle))
}

func (rs *resource) PromoteHold(c *gin.Context) {
	hid := rs.DserHoldID(c)
	if hid == nil {
		return
	}
	// The manual promotion path carries no external payment
	// reference, hence, the reservation is born pending and unpaid.
	rsv, err := rs.booking.PromoteHold(c, *hid, "")
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, SerReservation(rsv, ""))
}
