// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package vehiclesrs

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

type rawSearchReq struct {
	PickupLocationID string `form:"pickup_location_id" binding:"required,uuid"`
	ReturnLocationID string `form:"return_location_id" binding:"required,uuid"`
	From             string `form:"from" binding:"required"`
	To               string `form:"to" binding:"required"`
}

func (rs *resource) DserSearchReq(c *gin.Context) *bookinguc.SearchRequest {
	req := &rawSearchReq{}
	if ok := serdser.Bind(c, req, binding.Query); !ok {
		return nil
	}
	val := &bookinguc.SearchRequest{}
	var errs map[string][]string
	val.PickupLocationID = dserUUID(&errs, "pickup_location_id", req.PickupLocationID)
	val.ReturnLocationID = dserUUID(&errs, "return_location_id", req.ReturnLocationID)
	val.PickupAt = dserTime(&errs, "from", req.From)
	val.ReturnAt = dserTime(&errs, "to", req.To)
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return nil
	}
	return val
}

type rawAvailabilityReq struct {
	VehicleID        string `uri:"vid" binding:"required,uuid"`
	PickupLocationID string `form:"pickup_location_id" binding:"required,uuid"`
	ReturnLocationID string `form:"return_location_id" binding:"required,uuid"`
	From             string `form:"from" binding:"required"`
	To               string `form:"to" binding:"required"`
}

func (rs *resource) DserAvailabilityReq(
	c *gin.Context,
) *bookinguc.BookingRequest {
	req := &rawAvailabilityReq{}
	if ok := serdser.BindURI(c, req); !ok {
		return nil
	}
	if ok := serdser.Bind(c, req, binding.Query); !ok {
		return nil
	}
	val := &bookinguc.BookingRequest{}
	var errs map[string][]string
	val.VehicleID = dserUUID(&errs, "vid", req.VehicleID)
	val.PickupLocationID = dserUUID(&errs, "pickup_location_id", req.PickupLocationID)
	val.ReturnLocationID = dserUUID(&errs, "return_location_id", req.ReturnLocationID)
	val.PickupAt = dserTime(&errs, "from", req.From)
	val.ReturnAt = dserTime(&errs, "to", req.To)
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return nil
	}
	return val
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

type offerReply struct {
	VehicleID  uuid.UUID `json:"vehicle_id"`
	Name       string    `json:"name"`
	Plate      string    `json:"plate"`
	LocationID uuid.UUID `json:"location_id"`
	DayCount   int       `json:"day_count"`
	Total      int64     `json:"total"`
	Badges     []string  `json:"badges"`
}

// SerOffers serializes the fleet-search offers for the REST reply.
func SerOffers(offers []model.VehicleOffer) []offerReply {
	replies := make([]offerReply, len(offers))
	for i, o := range offers {
		replies[i] = offerReply{
			VehicleID:  o.Vehicle.ID,
			Name:       o.Vehicle.Name,
			Plate:      o.Vehicle.Plate,
			LocationID: o.Vehicle.LocationID,
			DayCount:   o.DayCount,
			Total:      o.Total,
			Badges:     o.Badges,
		}
	}
	return replies
}
