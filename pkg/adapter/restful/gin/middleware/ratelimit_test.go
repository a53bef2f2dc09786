// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/momeni/rentacar/pkg/adapter/restful/gin/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedEngine(rl *middleware.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(rl.Handler())
	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true})
	})
	return e
}

func get(e *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	e.ServeHTTP(w, req)
	return w
}

func TestRateLimiterBurst(t *testing.T) {
	// one request per minute refills too slowly for this test to
	// observe, so only the burst capacity admits requests
	rl := middleware.NewRateLimiter(1, 3)
	e := newLimitedEngine(rl)

	for i := 0; i < 3; i++ {
		w := get(e, "10.0.0.1:4000")
		require.Equal(t, 200, w.Code, "request %d is within the burst", i)
	}
	w := get(e, "10.0.0.1:4000")
	assert.Equal(t, 429, w.Code, "the burst capacity is exhausted")
	assert.Contains(t, w.Body.String(), "too many requests")
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := middleware.NewRateLimiter(1, 1)
	e := newLimitedEngine(rl)

	w := get(e, "10.0.0.1:4000")
	require.Equal(t, 200, w.Code)
	w = get(e, "10.0.0.1:4001")
	assert.Equal(
		t, 429, w.Code,
		"ports are stripped, so this is the same client",
	)
	w = get(e, "10.0.0.2:4000")
	assert.Equal(t, 200, w.Code, "another client has its own bucket")
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := middleware.NewRateLimiter(-5, 0)
	e := newLimitedEngine(rl)

	w := get(e, "10.0.0.1:4000")
	assert.Equal(
		t, 200, w.Code,
		"non-positive settings fall back to a working limiter",
	)
}
