// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package mail delivers transactional email, including password reset links.
package mail

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"
)

// ErrSendFailed is wrapped by every delivery failure.
var ErrSendFailed = errors.New("failed to send email")

// Message is a single outgoing HTML email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	// Tag groups messages in the provider's analytics.
	Tag string
}

// Validate checks that the message can be delivered.
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.To) == "":
		return oops.Code("MAIL_INVALID_MESSAGE").Errorf("recipient is required")
	case strings.TrimSpace(m.Subject) == "":
		return oops.Code("MAIL_INVALID_MESSAGE").Errorf("subject is required")
	case strings.TrimSpace(m.HTMLBody) == "":
		return oops.Code("MAIL_INVALID_MESSAGE").Errorf("body is required")
	}
	return nil
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
