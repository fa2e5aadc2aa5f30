// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

//go:build integration

package account_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // gomega convention
)

var resetLinkPattern = regexp.MustCompile(`/resetpassword/([0-9A-Za-z]+)`)

// browser is an HTTP client with a cookie jar, standing in for the frontend.
type browser struct {
	client *http.Client
	bearer string
}

func newBrowser() *browser {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &browser{client: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

// call sends body as JSON and decodes the JSON reply into a generic value.
func (b *browser) call(method, path string, body any) (int, any) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, env.server.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if b.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+b.bearer)
	}

	resp, err := b.client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var decoded any
	Expect(json.NewDecoder(resp.Body).Decode(&decoded)).To(Succeed())
	return resp.StatusCode, decoded
}

func (b *browser) object(method, path string, body any) (int, map[string]any) {
	status, decoded := b.call(method, path, body)
	obj, ok := decoded.(map[string]any)
	Expect(ok).To(BeTrue(), "expected a JSON object, got %#v", decoded)
	return status, obj
}

// sessionCookie returns the session token currently held in the jar.
func (b *browser) sessionCookie() string {
	u, err := url.Parse(env.server.URL)
	Expect(err).NotTo(HaveOccurred())
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == "token" {
			return c.Value
		}
	}
	return ""
}

// withBearer returns a cookieless client that authenticates with token.
func withBearer(token string) *browser {
	b := newBrowser()
	b.bearer = token
	return b
}

func (b *browser) loggedIn() bool {
	status, decoded := b.call(http.MethodGet, "/api/users/loggedin", nil)
	Expect(status).To(Equal(http.StatusOK))
	return decoded == true
}

func (b *browser) register(name, email, password string) map[string]any {
	status, body := b.object(http.MethodPost, "/api/users/register", map[string]string{
		"name": name, "email": email, "password": password,
	})
	Expect(status).To(Equal(http.StatusCreated), "body: %v", body)
	return body
}

// lastResetToken extracts the token from the most recent reset email.
func lastResetToken() string {
	msg, ok := env.outbox.last()
	Expect(ok).To(BeTrue(), "no email was sent")
	match := resetLinkPattern.FindStringSubmatch(msg.HTMLBody)
	Expect(match).To(HaveLen(2), "no reset link in %q", msg.HTMLBody)
	return match[1]
}
