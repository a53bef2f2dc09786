// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package httpgw implements the payment gateway port over the
// provider's REST API. Payment requests are opened with a POST call
// which is authenticated by a bearer API key, while incoming webhook
// deliveries are authenticated by an HMAC-SHA256 signature over a
// timestamped payload, so replayed or forged deliveries are rejected
// before they can reach the reconciliation logic.
package httpgw

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/momeni/rentacar/pkg/core/paygw"
)

// DefaultTolerance bounds the acceptable age of a signed webhook
// delivery when no explicit tolerance is configured.
const DefaultTolerance = 5 * time.Minute

// DefaultRequestTimeout bounds one outgoing provider call when no
// explicit http client is configured. The booking transaction holds a
// per-vehicle lock while this call is in flight, so a stalled provider
// may never hold it open-ended.
const DefaultRequestTimeout = 10 * time.Second

// Gateway is a payment provider client; it implements the
// github.com/momeni/rentacar/pkg/core/paygw.Gateway interface.
type Gateway struct {
	baseURL   string
	apiKey    string
	secret    []byte
	tolerance time.Duration
	client    *http.Client
	now       func() time.Time
}

// Option applies an optional setting on a Gateway instance which is
// being constructed by the New function.
type Option func(gw *Gateway) error

// WithTolerance makes the webhook signature verification accept
// deliveries which are at most d old (or d in the future, to account
// for clock skew). The d must be positive.
func WithTolerance(d time.Duration) Option {
	return func(gw *Gateway) error {
		if gw.tolerance != 0 {
			return fmt.Errorf("tolerance is already configured")
		}
		if d <= 0 {
			return fmt.Errorf("non-positive tolerance: %v", d)
		}
		gw.tolerance = d
		return nil
	}
}

// WithHTTPClient replaces the default http client (which bounds each
// outgoing provider call by DefaultRequestTimeout) with the given one.
func WithHTTPClient(c *http.Client) Option {
	return func(gw *Gateway) error {
		if gw.client != nil {
			return fmt.Errorf("http client is already configured")
		}
		if c == nil {
			return fmt.Errorf("nil http client")
		}
		gw.client = c
		return nil
	}
}

// WithClock replaces the time.Now function which the webhook
// signature verification consults, so tests may verify recorded
// deliveries deterministically.
func WithClock(now func() time.Time) Option {
	return func(gw *Gateway) error {
		if gw.now != nil {
			return fmt.Errorf("clock is already configured")
		}
		if now == nil {
			return fmt.Errorf("nil clock function")
		}
		gw.now = now
		return nil
	}
}

// New instantiates a payment gateway client for the provider REST API
// at baseURL. The apiKey authenticates outgoing calls and the secret
// is the shared webhook signing key.
func New(
	baseURL, apiKey, secret string, opts ...Option,
) (*Gateway, error) {
	switch {
	case baseURL == "":
		return nil, fmt.Errorf("empty base URL")
	case apiKey == "":
		return nil, fmt.Errorf("empty API key")
	case secret == "":
		return nil, fmt.Errorf("empty webhook secret")
	}
	gw := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		secret:  []byte(secret),
	}
	for _, opt := range opts {
		if err := opt(gw); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	// now, deal with defaults
	if gw.tolerance == 0 {
		gw.tolerance = DefaultTolerance
	}
	if gw.client == nil {
		gw.client = &http.Client{Timeout: DefaultRequestTimeout}
	}
	if gw.now == nil {
		gw.now = time.Now
	}
	return gw, nil
}

type paymentRequestBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type paymentRequestReply struct {
	ID           string `json:"id"`
	ClientHandle string `json:"client_handle"`
}

// CreatePaymentRequest opens a payment session for the given amount
// of minor currency units, tagging it with the metadata so later
// webhook events can be traced back to the record which they settle.
// A reply without a session id is treated as a provider failure.
func (gw *Gateway) CreatePaymentRequest(
	ctx context.Context,
	amountMinorUnits int64, currency string,
	metadata map[string]string,
) (*paygw.PaymentRequest, error) {
	body, err := json.Marshal(paymentRequestBody{
		Amount:   amountMinorUnits,
		Currency: currency,
		Metadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	url := gw.baseURL + "/payment_requests"
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+gw.apiKey)
	resp, err := gw.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling provider: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading provider reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf(
			"provider replied with status %d", resp.StatusCode,
		)
	}
	reply := &paymentRequestReply{}
	if err := json.Unmarshal(data, reply); err != nil {
		return nil, fmt.Errorf("decoding provider reply: %w", err)
	}
	if reply.ID == "" {
		return nil, fmt.Errorf("provider reply misses the session id")
	}
	return &paygw.PaymentRequest{
		ID:           reply.ID,
		ClientHandle: reply.ClientHandle,
	}, nil
}

type eventBody struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	PaymentRef string            `json:"payment_ref"`
	Metadata   map[string]string `json:"metadata"`
}

// VerifyEvent checks the authenticity of a raw webhook payload
// against its signature header and decodes it.
//
// The expected signature format is
//
//	t=<unix-seconds>,v1=<hex hmac>
//
// where the hmac is an HMAC-SHA256 over `<unix-seconds>.<payload>`
// keyed by the shared webhook secret. A delivery whose timestamp
// deviates from the local clock by more than the configured tolerance
// is rejected even when its hmac is valid, to bound replays.
// All rejections wrap paygw.ErrVerification and carry enough context
// for server-side logging only.
func (gw *Gateway) VerifyEvent(
	rawPayload []byte, signature string,
) (*paygw.Event, error) {
	ts, mac, err := parseSignature(signature)
	if err != nil {
		return nil, paygw.Verification(err)
	}
	expected := computeMAC(gw.secret, ts, rawPayload)
	if !hmac.Equal(mac, expected) {
		return nil, paygw.Verification(
			fmt.Errorf("signature mismatch"),
		)
	}
	at := time.Unix(ts, 0)
	if age := gw.now().Sub(at).Abs(); age > gw.tolerance {
		return nil, paygw.Verification(fmt.Errorf(
			"timestamp deviates by %v (tolerance %v)",
			age, gw.tolerance,
		))
	}
	body := &eventBody{}
	if err := json.Unmarshal(rawPayload, body); err != nil {
		return nil, paygw.Verification(
			fmt.Errorf("decoding payload: %w", err),
		)
	}
	if body.ID == "" {
		return nil, paygw.Verification(
			fmt.Errorf("payload misses the event id"),
		)
	}
	return &paygw.Event{
		ID:         body.ID,
		Type:       body.Type,
		PaymentRef: body.PaymentRef,
		Metadata:   body.Metadata,
	}, nil
}

// SignPayload computes the signature header value which VerifyEvent
// accepts for the given payload at the given time, using the secret
// key. The provider computes the same value when signing deliveries;
// this helper also makes recorded deliveries verifiable in tests.
func SignPayload(secret []byte, at time.Time, payload []byte) string {
	ts := at.Unix()
	mac := computeMAC(secret, ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac))
}

func parseSignature(signature string) (
	ts int64, mac []byte, err error,
) {
	var tsPart, macPart string
	for _, part := range strings.Split(signature, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return 0, nil, fmt.Errorf("malformed signature element")
		}
		switch k {
		case "t":
			tsPart = v
		case "v1":
			macPart = v
		}
	}
	if tsPart == "" || macPart == "" {
		return 0, nil, fmt.Errorf("incomplete signature header")
	}
	ts, err = strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("malformed timestamp: %w", err)
	}
	mac, err = hex.DecodeString(macPart)
	if err != nil {
		return 0, nil, fmt.Errorf("malformed hmac: %w", err)
	}
	return ts, mac, nil
}

func computeMAC(secret []byte, ts int64, payload []byte) []byte {
	h := hmac.New(sha256.New, secret)
	fmt.Fprintf(h, "%d.", ts)
	h.Write(payload)
	return h.Sum(nil)
}
