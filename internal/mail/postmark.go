// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package mail

import (
	"context"

	"github.com/mrz1836/postmark"
	"github.com/samber/oops"
)

// PostmarkConfig holds the Postmark credentials and envelope addresses.
type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	// From is the sender address; it must be a confirmed Postmark signature.
	From string
	// ReplyTo receives user replies. Optional.
	ReplyTo string
}

// postmarkAPI is the part of *postmark.Client PostmarkSender uses.
type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkSender sends mail through the Postmark transactional API.
type PostmarkSender struct {
	client postmarkAPI
	cfg    PostmarkConfig
}

// NewPostmarkSender creates a PostmarkSender.
func NewPostmarkSender(cfg PostmarkConfig) (*PostmarkSender, error) {
	if cfg.ServerToken == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("postmark server token is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("sender address is required")
	}
	return &PostmarkSender{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		cfg:    cfg,
	}, nil
}

// Send implements Sender.
func (s *PostmarkSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.cfg.From,
		ReplyTo:    s.cfg.ReplyTo,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.HTMLBody,
		TrackOpens: false,
		TrackLinks: "None",
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("provider", "postmark").
			With("tag", msg.Tag).
			Wrapf(ErrSendFailed, "%v", err)
	}
	if resp.ErrorCode > 0 {
		return oops.Code("MAIL_SEND_FAILED").
			With("provider", "postmark").
			With("postmark_code", resp.ErrorCode).
			With("tag", msg.Tag).
			Wrapf(ErrSendFailed, "postmark: %s", resp.Message)
	}
	return nil
}
