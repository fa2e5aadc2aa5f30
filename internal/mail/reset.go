// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/account"
)

// Reset email constants.
const (
	ResetSubject = "Password Reset Request."
	ResetTag     = "password-reset"
)

var resetTemplate = template.Must(template.New("reset").Parse(`<h2>Hello {{.Name}}</h2>
<p>Please use the url below to reset your password.</p>
<p>This reset link is valid for only {{.ValidFor}}.</p>

<a href="{{.URL}}" clicktracking="off">{{.URL}}</a>

<br/>
<br/>
<p>Regards...</p>
<p style="color:red;">{{.Team}}</p>
`))

// RenderResetEmail builds the password reset message for notice.
func RenderResetEmail(notice account.ResetNotice, team string) (Message, error) {
	var body bytes.Buffer
	err := resetTemplate.Execute(&body, struct {
		Name     string
		URL      string
		ValidFor string
		Team     string
	}{
		Name:     notice.Name,
		URL:      notice.URL,
		ValidFor: humanDuration(notice.ValidFor),
		Team:     team,
	})
	if err != nil {
		return Message{}, oops.Code("MAIL_RENDER_FAILED").With("template", "reset").Wrap(err)
	}
	return Message{
		To:       notice.Email,
		Subject:  ResetSubject,
		HTMLBody: body.String(),
		Tag:      ResetTag,
	}, nil
}

// humanDuration renders whole minutes or hours, e.g. "30 minutes".
func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// ResetMailer delivers password reset notices by email.
type ResetMailer struct {
	sender Sender
	team   string
}

// NewResetMailer creates a ResetMailer. team signs the message.
func NewResetMailer(sender Sender, team string) (*ResetMailer, error) {
	if sender == nil {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("sender is required")
	}
	if team == "" {
		team = "Accountd Team"
	}
	return &ResetMailer{sender: sender, team: team}, nil
}

// SendPasswordReset implements account.ResetNotifier.
func (m *ResetMailer) SendPasswordReset(ctx context.Context, notice account.ResetNotice) error {
	msg, err := RenderResetEmail(notice, m.team)
	if err != nil {
		return err
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return oops.Code("MAIL_RESET_FAILED").With("tag", ResetTag).Wrap(err)
	}
	return nil
}

var _ account.ResetNotifier = (*ResetMailer)(nil)
