// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/samber/oops"
)

// DevSender writes each message to a directory instead of sending it.
// Every message produces an .html body and a .json envelope.
type DevSender struct {
	dir string
	now func() time.Time
}

// NewDevSender creates a DevSender writing into dir, created on first send.
func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir, now: time.Now}
}

type devEnvelope struct {
	Timestamp string `json:"timestamp"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Tag       string `json:"tag,omitempty"`
}

// Send implements Sender.
func (d *DevSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("dir", d.dir).Wrapf(ErrSendFailed, "create dir: %v", err)
	}

	now := d.now()
	label := msg.Tag
	if label == "" {
		label = msg.Subject
	}
	base := filepath.Join(d.dir, fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405.000000"), sanitizeFilename(label)))

	if err := os.WriteFile(base+".html", []byte(msg.HTMLBody), 0o600); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("path", base+".html").Wrapf(ErrSendFailed, "%v", err)
	}

	envelope, err := json.MarshalIndent(devEnvelope{
		Timestamp: now.Format(time.RFC3339),
		To:        msg.To,
		Subject:   msg.Subject,
		Tag:       msg.Tag,
	}, "", "  ")
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").Wrapf(ErrSendFailed, "%v", err)
	}
	if err := os.WriteFile(base+".json", envelope, 0o600); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("path", base+".json").Wrapf(ErrSendFailed, "%v", err)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = unsafeFilenameChars.ReplaceAllString(strings.ReplaceAll(s, " ", "_"), "")
	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
