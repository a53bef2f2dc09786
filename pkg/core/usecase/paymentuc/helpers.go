// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package paymentuc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/momeni/rentacar/pkg/core/cerr"
	"github.com/momeni/rentacar/pkg/core/log"
	"github.com/momeni/rentacar/pkg/core/paygw"
)

// ignoreUnknown downgrades not-found, conflict, and gone outcomes of
// a lifecycle transition to logged no-ops. A verified event which
// references an unknown record, a reservation which moved to a state
// that rejects the transition (e.g., cancelled before the payment
// settled), or a hold which expired before its payment settled, must
// not make the provider retry the delivery forever; the situation is
// logged for the operator instead. All other errors stay retryable.
func ignoreUnknown(ctx context.Context, ev *paygw.Event, err error) error {
	if err == nil {
		return nil
	}
	var ce *cerr.Error
	if errors.As(err, &ce) {
		switch ce.HTTPStatusCode {
		case http.StatusNotFound, http.StatusConflict, http.StatusGone:
			attrs := append(
				slogEventAttrs(ev), log.Err("error", err),
			)
			log.Warn(ctx, "payment event dropped", attrs...)
			return nil
		}
	}
	return err
}

// slogEventAttrs returns the standard log attributes of one event.
func slogEventAttrs(ev *paygw.Event) []slog.Attr {
	return []slog.Attr{
		slog.String("event", ev.ID),
		slog.String("type", ev.Type),
	}
}
