// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package webhooksrs realizes the payment webhook resource, accepting
// the raw signed deliveries from the payment provider and delegating
// them to the reconciliation use case.
package webhooksrs

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momeni/rentacar/pkg/core/log"
	"github.com/momeni/rentacar/pkg/core/paygw"
	"github.com/momeni/rentacar/pkg/core/usecase/paymentuc"
)

// SignatureHeader carries the provider's signature over the raw
// webhook payload.
const SignatureHeader = "X-Payment-Signature"

// maxPayloadBytes bounds the accepted webhook payload size.
const maxPayloadBytes = 1 << 20

type resource struct {
	payment *paymentuc.UseCase
}

// Register instantiates a resource adapting the payment
// reconciliation use case instance with the relevant REST APIs
// including:
//  1. POST request to /api/rentacar/v1/webhooks/payment
//     in order to ingest one signed payment event delivery.
func Register(r *gin.RouterGroup, payment *paymentuc.UseCase) {
	rs := &resource{payment: payment}
	r.POST("webhooks/payment", rs.ReceiveEvent)
}

// ReceiveEvent reads the raw payload (the signature covers the exact
// bytes, so no binding-based deserialization may happen first) and
// hands it to the reconciliation use case. Verification failures are
// answered with a bare 400 status; the cause is logged server-side
// only, so the reply does not help an attacker probing the signature
// scheme. Any other failure is a 500 which makes the provider redeliver
// later; redeliveries are safe because reconciliation deduplicates by
// the event id.
func (rs *resource) ReceiveEvent(c *gin.Context) {
	payload, err := io.ReadAll(
		io.LimitReader(c.Request.Body, maxPayloadBytes),
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": "unreadable payload",
		})
		return
	}
	signature := c.GetHeader(SignatureHeader)
	err = rs.payment.Reconcile(c, payload, signature)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, paygw.ErrVerification):
		log.Warn(c, "rejected payment webhook", log.Err("error", err))
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": "verification failed",
		})
	default:
		log.Error(c, "payment webhook failed", log.Err("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": "internal error",
		})
	}
}
