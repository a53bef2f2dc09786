// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package middleware contains the gin middlewares which are shared by
// the resource packages. Currently it provides a per-client token
// bucket rate limiter which shields the booking endpoints (they take
// per-vehicle locks, so a request flood would serialize behind them).
package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitorIdleTimeout is how long a client bucket survives without
// traffic before its state is dropped.
const visitorIdleTimeout = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter maintains one token bucket per client address.
type RateLimiter struct {
	perSecond rate.Limit
	burst     int

	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

// NewRateLimiter creates a limiter which admits requestsPerMinute
// requests per minute with the given burst capacity, per client.
// Non-positive arguments fall back to one request per second with a
// burst of one.
func NewRateLimiter(requestsPerMinute float64, burst int) *RateLimiter {
	perSecond := requestsPerMinute / 60.0
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		visitors:  make(map[string]*visitor),
		now:       time.Now,
	}
}

// Handler returns the gin middleware which admits or rejects requests
// based on the per-client bucket state. Rejected requests receive a
// 429 status and do not reach the resource handlers.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(clientID(c.Request)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail": "too many requests",
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(id string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	v, ok := rl.visitors[id]
	if !ok {
		v = &visitor{
			limiter: rate.NewLimiter(rl.perSecond, rl.burst),
		}
		rl.visitors[id] = v
		rl.sweep(now)
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

// sweep drops buckets which saw no traffic recently. It runs under
// the mutex and only when a new client shows up, so steady traffic
// incurs no sweeping cost.
func (rl *RateLimiter) sweep(now time.Time) {
	for id, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorIdleTimeout {
			delete(rl.visitors, id)
		}
	}
}

func clientID(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
