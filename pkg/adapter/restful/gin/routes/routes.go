// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package routes contains all resource packages and facilitates
// instantiation and registration of all repo, use case, and resource
// packages based on the user provided configuration settings.
package routes

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/momeni/rentacar/pkg/adapter/config"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres/holdsrp"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres/locationsrp"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres/paymenteventsrp"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres/reservationsrp"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres/vehiclesrp"
	"github.com/momeni/rentacar/pkg/adapter/restful/gin/bookingsrs"
	"github.com/momeni/rentacar/pkg/adapter/restful/gin/middleware"
	"github.com/momeni/rentacar/pkg/adapter/restful/gin/vehiclesrs"
	"github.com/momeni/rentacar/pkg/adapter/restful/gin/webhooksrs"
	"github.com/momeni/rentacar/pkg/core/repo"
	"github.com/momeni/rentacar/pkg/core/usecase/paymentuc"
)

// Register instantiates relevant repositories and use cases based on
// the c configuration settings. The p connections pool is passed to
// the use case instances, so they may acquire/release connections
// and transactions on demand. These connections/transactions will be
// passed to the repositories later in order to run relevant queries on
// them and accomplish those use cases. Each use case package is named
// like bookinguc and each repository package is named like vehiclesrp.
// Register instantiates a series of "resource" structs, from packages
// which are named like vehiclesrs, in order to adapt the use cases
// interfaces with the REST APIs. These resources are registered as
// request handlers using the e gin-gonic engine instance.
// Possible errors will be returned after possible wrapping.
func Register(
	ctx context.Context, e *gin.Engine, p repo.Pool, c *config.Config,
) error {
	vehiclesRepo := vehiclesrp.New()
	locationsRepo := locationsrp.New()
	reservationsRepo := reservationsrp.New()
	holdsRepo := holdsrp.New()
	eventsRepo := paymenteventsrp.New()

	gateway, err := c.Payment.NewGateway()
	if err != nil {
		return fmt.Errorf("creating payment gateway: %w", err)
	}
	booking, err := c.Booking.NewUseCase(
		p, vehiclesRepo, locationsRepo, reservationsRepo, holdsRepo,
		gateway, c.SMTP.NewNotifier(),
	)
	if err != nil {
		return fmt.Errorf("creating booking use case: %w", err)
	}
	payment := paymentuc.New(p, eventsRepo, gateway, booking)

	r := e.Group("/api/rentacar/v1")
	if rpm := c.Gin.RateLimit.RequestsPerMinute; rpm > 0 {
		rl := middleware.NewRateLimiter(rpm, c.Gin.RateLimit.Burst)
		r.Use(rl.Handler())
	}
	vehiclesrs.Register(r, booking)
	bookingsrs.Register(r, booking)
	webhooksrs.Register(r, payment)
	return nil
}
