// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httpgw_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/momeni/rentacar/pkg/adapter/paygw/httpgw"
	"github.com/momeni/rentacar/pkg/core/paygw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "whsec_test"

var clock = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func newGateway(t *testing.T, baseURL string) *httpgw.Gateway {
	gw, err := httpgw.New(
		baseURL, "sk_test", secret,
		httpgw.WithClock(func() time.Time { return clock }),
	)
	require.NoError(t, err, "instantiating gateway")
	return gw
}

func TestNewValidation(t *testing.T) {
	for _, tc := range []struct {
		name                    string
		baseURL, apiKey, secret string
	}{
		{"no base url", "", "sk", "whsec"},
		{"no api key", "http://provider", "", "whsec"},
		{"no secret", "http://provider", "sk", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := httpgw.New(tc.baseURL, tc.apiKey, tc.secret)
			assert.Error(t, err)
		})
	}

	_, err := httpgw.New(
		"http://provider", "sk", "whsec",
		httpgw.WithTolerance(time.Minute),
		httpgw.WithTolerance(time.Minute),
	)
	assert.Error(t, err, "repeated options must be rejected")
}

func TestCreatePaymentRequest(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Amount   int64             `json:"amount"`
		Currency string            `json:"currency"`
		Metadata map[string]string `json:"metadata"`
	}
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/payment_requests", r.URL.Path)
			gotAuth = r.Header.Get("Authorization")
			b, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(b, &gotBody))
			w.Header().Set("Content-Type", "application/json")
			_, err = w.Write([]byte(
				`{"id": "ps_123", "client_handle": "cs_456"}`,
			))
			assert.NoError(t, err)
		},
	))
	defer srv.Close()

	gw := newGateway(t, srv.URL+"/")
	pr, err := gw.CreatePaymentRequest(
		context.Background(), 15000, "EUR",
		map[string]string{"reservation_code": "RC-ABCDEFGH"},
	)
	require.NoError(t, err)
	assert.Equal(t, "ps_123", pr.ID)
	assert.Equal(t, "cs_456", pr.ClientHandle)
	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.Equal(t, int64(15000), gotBody.Amount)
	assert.Equal(t, "EUR", gotBody.Currency)
	assert.Equal(t, "RC-ABCDEFGH", gotBody.Metadata["reservation_code"])
}

func TestCreatePaymentRequestProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		},
	))
	defer srv.Close()

	gw := newGateway(t, srv.URL)
	_, err := gw.CreatePaymentRequest(
		context.Background(), 100, "EUR", nil,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestCreatePaymentRequestStalledProvider(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			<-release
		},
	))
	defer srv.Close()
	defer close(release)

	// the booking transaction waits on this call while holding the
	// per-vehicle lock, so the client timeout must cut a stalled
	// provider off (New applies DefaultRequestTimeout when no client
	// is configured)
	gw, err := httpgw.New(
		srv.URL, "sk_test", secret,
		httpgw.WithHTTPClient(
			&http.Client{Timeout: 50 * time.Millisecond},
		),
	)
	require.NoError(t, err)
	_, err = gw.CreatePaymentRequest(
		context.Background(), 100, "EUR", nil,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calling provider")
}

func TestCreatePaymentRequestMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, err := w.Write([]byte(`{"client_handle": "cs_456"}`))
			assert.NoError(t, err)
		},
	))
	defer srv.Close()

	gw := newGateway(t, srv.URL)
	_, err := gw.CreatePaymentRequest(
		context.Background(), 100, "EUR", nil,
	)
	assert.Error(t, err, "a session without an id is unusable")
}

func TestVerifyEvent(t *testing.T) {
	gw := newGateway(t, "http://provider")
	payload := []byte(`{
		"id": "evt_1",
		"type": "payment.succeeded",
		"payment_ref": "pay_9",
		"metadata": {"reservation_id": "rid-placeholder"}
	}`)
	sig := httpgw.SignPayload([]byte(secret), clock, payload)

	ev, err := gw.VerifyEvent(payload, sig)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, "payment.succeeded", ev.Type)
	assert.Equal(t, "pay_9", ev.PaymentRef)
	assert.Equal(t, "rid-placeholder", ev.Metadata["reservation_id"])
}

func TestVerifyEventRejections(t *testing.T) {
	gw := newGateway(t, "http://provider")
	payload := []byte(`{"id": "evt_1", "type": "payment.succeeded"}`)
	valid := httpgw.SignPayload([]byte(secret), clock, payload)

	for _, tc := range []struct {
		name      string
		payload   []byte
		signature string
	}{
		{
			name:      "tampered payload",
			payload:   []byte(`{"id": "evt_2", "type": "payment.succeeded"}`),
			signature: valid,
		},
		{
			name:    "wrong key",
			payload: payload,
			signature: httpgw.SignPayload(
				[]byte("whsec_other"), clock, payload,
			),
		},
		{
			name:    "stale timestamp",
			payload: payload,
			signature: httpgw.SignPayload(
				[]byte(secret), clock.Add(-6*time.Minute), payload,
			),
		},
		{
			name:    "future timestamp",
			payload: payload,
			signature: httpgw.SignPayload(
				[]byte(secret), clock.Add(6*time.Minute), payload,
			),
		},
		{
			name:      "empty signature",
			payload:   payload,
			signature: "",
		},
		{
			name:      "malformed signature",
			payload:   payload,
			signature: "t=notanumber,v1=zz",
		},
		{
			name:      "missing hmac element",
			payload:   payload,
			signature: "t=1717243200",
		},
		{
			name:    "unsigned garbage payload",
			payload: []byte("not json"),
			signature: httpgw.SignPayload(
				[]byte(secret), clock, []byte("not json"),
			),
		},
		{
			name:    "payload without event id",
			payload: []byte(`{"type": "payment.succeeded"}`),
			signature: httpgw.SignPayload(
				[]byte(secret), clock,
				[]byte(`{"type": "payment.succeeded"}`),
			),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gw.VerifyEvent(tc.payload, tc.signature)
			assert.ErrorIs(t, err, paygw.ErrVerification)
		})
	}
}

func TestVerifyEventTolerance(t *testing.T) {
	gw, err := httpgw.New(
		"http://provider", "sk_test", secret,
		httpgw.WithClock(func() time.Time { return clock }),
		httpgw.WithTolerance(10*time.Minute),
	)
	require.NoError(t, err)
	payload := []byte(`{"id": "evt_1", "type": "payment.succeeded"}`)
	sig := httpgw.SignPayload(
		[]byte(secret), clock.Add(-9*time.Minute), payload,
	)
	_, err = gw.VerifyEvent(payload, sig)
	assert.NoError(
		t, err, "a delivery within the configured tolerance passes",
	)
}
