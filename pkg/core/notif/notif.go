// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package notif exports the expected interface of the notification
// collaborator (an email provider in practice). Notifications are
// best-effort everywhere in this project: a failed send is logged by
// the caller and never turns a successful booking operation into a
// failure.
package notif

import "context"

// Notifier represents the expectations from the notification provider.
type Notifier interface {
	// Send delivers one HTML message to the `to` address.
	Send(ctx context.Context, to, subject, htmlBody string) error
}
