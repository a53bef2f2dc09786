// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package vehiclesrs realizes the vehicles resource, allowing the
// fleet search and availability REST APIs to be accepted and
// delegated to the booking use cases respectively.
package vehiclesrs

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
//  1. GET request to /api/rentacar/v1/vehicles/search
//     in order to list bookable vehicles with their quoted prices.
//  2. GET request to /api/rentacar/v1/vehicles/:vid/availability
//     in order to check one vehicle against one rental window.
func Register(r *gin.RouterGroup, booking *bookinguc.UseCase) {
	rs := &resource{booking: booking}
	r.GET("vehicles/search", rs.Search)
	r.GET("vehicles/:vid/availability", rs.CheckAvailability)
}

func (rs *resource) Search(c *gin.Context) {
	req := rs.DserSearchReq(c)
	if req == nil {
		return
	}
	offers, err := rs.booking.Search(c, req)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SerOffers(offers))
}

func (rs *resource) CheckAvailability(c *gin.Context) {
	req := rs.DserAvailabilityReq(c)
	if req == nil {
		return
	}
	available, err := rs.booking.CheckAvailability(c, req)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}
