// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package mailer implements the notifier port on top of a plain SMTP
// server. Notifications are best-effort by contract, hence, no
// queueing or retrying is performed here; a failed delivery is simply
// reported to the caller which logs and moves on.
package mailer

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

// Mailer delivers notification emails over SMTP; it implements the
// github.com/momeni/rentacar/pkg/core/notif.Notifier interface.
type Mailer struct {
	addr string
	from string
	auth smtp.Auth
}

// New instantiates a Mailer for the SMTP server at host:port. The
// from address is used as the envelope sender and the From header.
// If username is empty, no authentication will be attempted.
func New(host string, port int, from, username, password string) *Mailer {
	m := &Mailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
	}
	if username != "" {
		m.auth = smtp.PlainAuth("", username, password, host)
	}
	return m
}

// Send composes an HTML email with the given subject and body and
// delivers it to the to address. The ctx is only consulted before
// dialing because the net/smtp package does not support cancellation
// of an in-flight conversation.
func (m *Mailer) Send(
	ctx context.Context, to, subject, htmlBody string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := m.compose(to, subject, htmlBody)
	if err := smtp.SendMail(
		m.addr, m.auth, m.from, []string{to}, msg,
	); err != nil {
		return fmt.Errorf("sending mail to %q: %w", to, err)
	}
	return nil
}

func (m *Mailer) compose(to, subject, htmlBody string) []byte {
	b := &strings.Builder{}
	fmt.Fprintf(b, "From: %s\r\n", m.from)
	fmt.Fprintf(b, "To: %s\r\n", to)
	fmt.Fprintf(
		b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject),
	)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}
