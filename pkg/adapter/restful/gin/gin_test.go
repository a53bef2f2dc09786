// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package gin_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bitcomplete/sqltestutil"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/momeni/rentacar/internal/test/dbcontainer"
	"github.com/momeni/rentacar/pkg/adapter/config"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres/schema"
	"github.com/momeni/rentacar/pkg/adapter/paygw/httpgw"
	"github.com/momeni/rentacar/pkg/adapter/restful/gin"
	"github.com/momeni/rentacar/pkg/adapter/restful/gin/routes"
	"github.com/momeni/rentacar/pkg/adapter/restful/gin/webhooksrs"
	"github.com/momeni/rentacar/pkg/core/repo"
	"github.com/stretchr/testify/suite"
)

const webhookSecret = "whsec_integration"

type IntegrationGinTestSuite struct {
	suite.Suite

	Ctx      context.Context
	Pg       *sqltestutil.PostgresContainer
	Pool     *postgres.Pool
	Gin      *gin.Engine
	Provider *httptest.Server

	locA, locB uuid.UUID
	vehicle    uuid.UUID
}

func TestIntegrationGinTestSuite(t *testing.T) {
	ctx := context.Background()
	pg, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return // errors are already logged
	}
	suite.Run(t, &IntegrationGinTestSuite{
		Ctx:  ctx,
		Pg:   pg,
		Pool: pool,
	})
}

func (igts *IntegrationGinTestSuite) SetupSuite() {
	s := schema.New()
	err := igts.Pool.Conn(
		igts.Ctx, func(ctx context.Context, c repo.Conn) error {
			return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
				return s.Tx(tx).InitSchema(ctx)
			})
		},
	)
	igts.Require().NoError(err, "failed to initialize database schema")
	igts.seedFleet()

	// a canned payment provider; session ids count up per call
	var sessions int
	igts.Provider = httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/payment_requests" {
				http.NotFound(w, r)
				return
			}
			sessions++
			fmt.Fprintf(
				w, `{"id": "ps_%d", "client_handle": "cs_%d"}`,
				sessions, sessions,
			)
		},
	))

	igts.Gin = gin.New(gin.Logger(), gin.Recovery())
	igts.Require().NotNil(igts.Gin, "cannot instantiate Gin engine")
	err = routes.Register(igts.Ctx, igts.Gin, igts.Pool, &config.Config{
		Payment: config.Payment{
			BaseURL:       igts.Provider.URL,
			APIKey:        "sk_integration",
			WebhookSecret: webhookSecret,
		},
		SMTP: config.SMTP{
			// nothing listens here; notification failures are
			// best-effort and only logged
			Host: "127.0.0.1",
			Port: 2525,
			From: "noreply@example.com",
		},
	})
	igts.Require().NoError(err, "failed to register Gin routes")
}

func (igts *IntegrationGinTestSuite) TearDownSuite() {
	if igts.Provider != nil {
		igts.Provider.Close()
	}
}

func (igts *IntegrationGinTestSuite) seedFleet() {
	igts.locA = uuid.New()
	igts.locB = uuid.New()
	igts.vehicle = uuid.New()
	err := igts.Pool.Conn(
		igts.Ctx, func(ctx context.Context, c repo.Conn) error {
			if _, err := c.Exec(
				ctx,
				`INSERT INTO locations(lid, name, address, active)
VALUES ($1, 'Airport', 'Airport Blvd 1', TRUE),
       ($2, 'Downtown', 'Main St 5', TRUE)`,
				igts.locA, igts.locB,
			); err != nil {
				return err
			}
			count, err := c.Exec(
				ctx,
				`INSERT INTO vehicles(
    vid, name, plate, location_id,
    daily_1_3, daily_4_7, daily_8_14, daily_15_plus
) VALUES ($1, 'Fiat Panda', 'AB-123-CD', $2, 5000, 4500, 4000, 3500)`,
				igts.vehicle, igts.locA,
			)
			igts.Equal(int64(1), count, "tried to INSERT one vehicle")
			return err
		},
	)
	igts.Require().NoError(err, "failed to seed fleet data")
}

func (igts *IntegrationGinTestSuite) sendReqRecvResp(
	w *httptest.ResponseRecorder, req *http.Request, res any,
) {
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	igts.Gin.ServeHTTP(w, req)
	if res == nil {
		return
	}
	b := w.Body.Bytes()
	igts.NoError(json.Unmarshal(b, res), "body is not json: %s", b)
}

type reservationResp struct {
	ID            uuid.UUID `json:"id"`
	Code          string    `json:"code"`
	VehicleID     uuid.UUID `json:"vehicle_id"`
	DayCount      int       `json:"day_count"`
	TotalAmount   int64     `json:"total_amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	PaymentHandle string    `json:"payment_handle"`
}

func (igts *IntegrationGinTestSuite) bookingBody(
	pickup, ret time.Time,
) io.Reader {
	body := fmt.Sprintf(`{
	"vehicle_id": %q,
	"pickup_location_id": %q,
	"return_location_id": %q,
	"pickup_at": %q,
	"return_at": %q,
	"customer": {
		"name": "Jane",
		"last_name": "Doe",
		"email": "jane@example.com",
		"phone": "+31123456789"
	}
}`,
		igts.vehicle, igts.locA, igts.locA,
		pickup.Format(time.RFC3339), ret.Format(time.RFC3339),
	)
	return strings.NewReader(body)
}

func (igts *IntegrationGinTestSuite) createReservation(
	pickup, ret time.Time,
) *reservationResp {
	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodPost,
		"/api/rentacar/v1/reservations",
		igts.bookingBody(pickup, ret),
	)
	igts.Require().NoError(err, "cannot create POST request")
	res := &reservationResp{}
	igts.sendReqRecvResp(w, req, res)
	igts.Require().Equal(201, w.Code, "body: %s", w.Body.String())
	return res
}

func (igts *IntegrationGinTestSuite) deliverWebhook(
	payload []byte,
) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodPost,
		"/api/rentacar/v1/webhooks/payment",
		bytes.NewReader(payload),
	)
	igts.Require().NoError(err, "cannot create POST request")
	req.Header.Set(
		webhooksrs.SignatureHeader,
		httpgw.SignPayload([]byte(webhookSecret), time.Now(), payload),
	)
	igts.Gin.ServeHTTP(w, req)
	return w
}

// TestBookAndConfirm walks the happy path end to end: search the
// fleet, book the offered vehicle, and settle it with a signed payment
// webhook which is delivered twice to cover the at-least-once
// semantics.
func (igts *IntegrationGinTestSuite) TestBookAndConfirm() {
	pickup := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	ret := time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodGet,
		fmt.Sprintf(
			"/api/rentacar/v1/vehicles/search"+
				"?pickup_location_id=%s&return_location_id=%s"+
				"&from=%s&to=%s",
			igts.locA, igts.locA,
			pickup.Format(time.RFC3339), ret.Format(time.RFC3339),
		),
		nil,
	)
	igts.Require().NoError(err, "cannot create GET request")
	var offers []struct {
		VehicleID uuid.UUID `json:"vehicle_id"`
		DayCount  int       `json:"day_count"`
		Total     int64     `json:"total"`
		Badges    []string  `json:"badges"`
	}
	igts.sendReqRecvResp(w, req, &offers)
	igts.Equal(200, w.Code)
	igts.Require().Len(offers, 1)
	igts.Equal(igts.vehicle, offers[0].VehicleID)
	igts.Equal(2, offers[0].DayCount)
	igts.Equal(int64(10000), offers[0].Total)
	igts.Contains(offers[0].Badges, "tier:1_3")

	rsv := igts.createReservation(pickup, ret)
	igts.Equal("pending", rsv.Status)
	igts.Equal("unpaid", rsv.PaymentStatus)
	igts.Equal(int64(10000), rsv.TotalAmount)
	igts.Equal("EUR", rsv.Currency)
	igts.NotEmpty(rsv.Code)
	igts.NotEmpty(
		rsv.PaymentHandle,
		"creation must hand out the payment handle",
	)

	payload := []byte(fmt.Sprintf(`{
	"id": "evt_confirm_1",
	"type": "payment.succeeded",
	"payment_ref": "pay_1",
	"metadata": {"reservation_id": %q}
}`, rsv.ID))
	for i := 0; i < 2; i++ {
		hw := igts.deliverWebhook(payload)
		igts.Equal(200, hw.Code, "delivery %d: %s", i, hw.Body.String())
	}

	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodGet,
		"/api/rentacar/v1/reservations/"+rsv.Code,
		nil,
	)
	igts.Require().NoError(err, "cannot create GET request")
	got := &reservationResp{}
	igts.sendReqRecvResp(w, req, got)
	igts.Equal(200, w.Code)
	igts.Equal("confirmed", got.Status)
	igts.Equal("paid", got.PaymentStatus)
	igts.Empty(
		got.PaymentHandle,
		"the payment handle is only reported at creation time",
	)

	// the booked window is no longer available
	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodGet,
		fmt.Sprintf(
			"/api/rentacar/v1/vehicles/%s/availability"+
				"?pickup_location_id=%s&return_location_id=%s"+
				"&from=%s&to=%s",
			igts.vehicle, igts.locA, igts.locA,
			pickup.Format(time.RFC3339), ret.Format(time.RFC3339),
		),
		nil,
	)
	igts.Require().NoError(err, "cannot create GET request")
	avail := &struct {
		Available bool `json:"available"`
	}{Available: true}
	igts.sendReqRecvResp(w, req, avail)
	igts.Equal(200, w.Code)
	igts.False(avail.Available)
}

func (igts *IntegrationGinTestSuite) TestDoubleBookingConflict() {
	pickup := time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC)
	ret := time.Date(2024, time.July, 3, 9, 0, 0, 0, time.UTC)
	igts.createReservation(pickup, ret)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodPost,
		"/api/rentacar/v1/reservations",
		igts.bookingBody(pickup.AddDate(0, 0, 1), ret.AddDate(0, 0, 1)),
	)
	igts.Require().NoError(err, "cannot create POST request")
	res := &struct {
		Detail string
	}{}
	igts.sendReqRecvResp(w, req, res)
	igts.Equal(409, w.Code)
	igts.Equal("the selected period is not available", res.Detail)
}

// TestConcurrentBookingRace fires two overlapping booking requests at
// the same time: the per-vehicle advisory lock (backed by the
// reservations exclusion constraint) must admit exactly one of them.
func (igts *IntegrationGinTestSuite) TestConcurrentBookingRace() {
	pickup := time.Date(2024, time.October, 1, 9, 0, 0, 0, time.UTC)
	ret := time.Date(2024, time.October, 3, 9, 0, 0, 0, time.UTC)

	start := make(chan struct{})
	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := httptest.NewRecorder()
			req, err := http.NewRequest(
				http.MethodPost,
				"/api/rentacar/v1/reservations",
				igts.bookingBody(pickup, ret),
			)
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			<-start
			igts.Gin.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	close(start)
	wg.Wait()

	created, conflicted := 0, 0
	for _, code := range codes {
		switch code {
		case 201:
			created++
		case 409:
			conflicted++
		}
	}
	igts.Equal(1, created, "status codes: %v", codes)
	igts.Equal(1, conflicted, "status codes: %v", codes)
}

func (igts *IntegrationGinTestSuite) TestCancelReservation() {
	pickup := time.Date(2024, time.August, 1, 9, 0, 0, 0, time.UTC)
	ret := time.Date(2024, time.August, 3, 9, 0, 0, 0, time.UTC)
	rsv := igts.createReservation(pickup, ret)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodDelete,
		"/api/rentacar/v1/reservations/"+rsv.ID.String(),
		nil,
	)
	igts.Require().NoError(err, "cannot create DELETE request")
	got := &reservationResp{}
	igts.sendReqRecvResp(w, req, got)
	igts.Equal(200, w.Code)
	igts.Equal("cancelled", got.Status)

	// cancelling again conflicts with the terminal state
	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodDelete,
		"/api/rentacar/v1/reservations/"+rsv.ID.String(),
		nil,
	)
	igts.Require().NoError(err, "cannot create DELETE request")
	igts.sendReqRecvResp(w, req, nil)
	igts.Equal(409, w.Code)

	// the cancelled window may be booked again
	igts.createReservation(pickup, ret)
}

func (igts *IntegrationGinTestSuite) TestHoldPromotion() {
	pickup := time.Date(2024, time.September, 1, 9, 0, 0, 0, time.UTC)
	ret := time.Date(2024, time.September, 3, 9, 0, 0, 0, time.UTC)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodPost,
		"/api/rentacar/v1/holds",
		igts.bookingBody(pickup, ret),
	)
	igts.Require().NoError(err, "cannot create POST request")
	hold := &struct {
		ID            uuid.UUID `json:"id"`
		TotalAmount   int64     `json:"total_amount"`
		PaymentHandle string    `json:"payment_handle"`
		ExpiresAt     time.Time `json:"expires_at"`
	}{}
	igts.sendReqRecvResp(w, req, hold)
	igts.Require().Equal(201, w.Code, "body: %s", w.Body.String())
	igts.Equal(int64(10000), hold.TotalAmount)
	igts.NotEmpty(hold.PaymentHandle)
	igts.WithinDuration(
		time.Now().Add(30*time.Minute), hold.ExpiresAt, time.Minute,
	)

	// the held window conflicts with a direct booking attempt
	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodPost,
		"/api/rentacar/v1/reservations",
		igts.bookingBody(pickup, ret),
	)
	igts.Require().NoError(err, "cannot create POST request")
	igts.sendReqRecvResp(w, req, nil)
	igts.Equal(409, w.Code)

	// a payment webhook promotes the hold into a confirmed reservation
	payload := []byte(fmt.Sprintf(`{
	"id": "evt_hold_1",
	"type": "payment.succeeded",
	"payment_ref": "pay_hold_1",
	"metadata": {"hold_id": %q}
}`, hold.ID))
	hw := igts.deliverWebhook(payload)
	igts.Equal(200, hw.Code, "body: %s", hw.Body.String())
}

func (igts *IntegrationGinTestSuite) TestWebhookBadSignature() {
	payload := []byte(`{"id": "evt_x", "type": "payment.succeeded"}`)
	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodPost,
		"/api/rentacar/v1/webhooks/payment",
		bytes.NewReader(payload),
	)
	igts.Require().NoError(err, "cannot create POST request")
	req.Header.Set(webhooksrs.SignatureHeader, "t=123,v1=deadbeef")
	res := &struct {
		Detail string
	}{}
	igts.sendReqRecvResp(w, req, res)
	igts.Equal(400, w.Code)
	igts.Equal(
		"verification failed", res.Detail,
		"the rejection may not reveal the cause",
	)
}

func (igts *IntegrationGinTestSuite) TestBadRequest() {
	for _, tc := range []struct {
		name string
		body string
		want string
	}{
		{
			name: "no body",
			body: "",
			want: "EOF",
		},
		{
			name: "empty object",
			body: "{}",
			want: "required",
		},
		{
			name: "malformed vehicle id",
			body: `{
	"vehicle_id": "not-a-uuid",
	"pickup_location_id": "b09b0b5f-0000-0000-0000-000000000001",
	"return_location_id": "b09b0b5f-0000-0000-0000-000000000001",
	"pickup_at": "2024-06-01T09:00:00Z",
	"return_at": "2024-06-03T09:00:00Z",
	"customer": {
		"name": "Jane", "last_name": "Doe",
		"email": "jane@example.com", "phone": "+31123456789"
	}
}`,
			want: "uuid",
		},
		{
			name: "malformed email",
			body: `{
	"vehicle_id": "b09b0b5f-0000-0000-0000-000000000002",
	"pickup_location_id": "b09b0b5f-0000-0000-0000-000000000001",
	"return_location_id": "b09b0b5f-0000-0000-0000-000000000001",
	"pickup_at": "2024-06-01T09:00:00Z",
	"return_at": "2024-06-03T09:00:00Z",
	"customer": {
		"name": "Jane", "last_name": "Doe",
		"email": "not-an-email", "phone": "+31123456789"
	}
}`,
			want: "email",
		},
	} {
		igts.Run(tc.name, func() {
			w := httptest.NewRecorder()
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req, err := http.NewRequest(
				http.MethodPost,
				"/api/rentacar/v1/reservations",
				body,
			)
			igts.Require().NoError(err, "cannot create POST request")
			igts.sendReqRecvResp(w, req, nil)
			igts.Equal(400, w.Code)
			igts.Contains(w.Body.String(), tc.want)
		})
	}
}

func (igts *IntegrationGinTestSuite) TestNotFound() {
	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodGet,
		"/api/rentacar/v1/reservations/RC-MISSING1",
		nil,
	)
	igts.Require().NoError(err, "cannot create GET request")
	igts.sendReqRecvResp(w, req, nil)
	igts.Equal(404, w.Code)
}
