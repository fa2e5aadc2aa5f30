// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi

import (
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is the session cookie name the frontend expects.
const DefaultCookieName = "token"

// CookieOptions shape the session cookie.
type CookieOptions struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

func (c CookieOptions) withDefaults() CookieOptions {
	if c.Name == "" {
		c.Name = DefaultCookieName
	}
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteLaxMode
	}
	// Browsers drop SameSite=None cookies that are not Secure.
	if c.SameSite == http.SameSiteNoneMode {
		c.Secure = true
	}
	return c
}

// ParseSameSite converts lax, strict or none. Anything else is lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (c CookieOptions) session(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

func (c CookieOptions) cleared() *http.Cookie {
	cookie := c.session("", time.Unix(0, 0))
	cookie.MaxAge = -1
	return cookie
}

// sessionToken reads the session cookie, falling back to a bearer token.
func (c CookieOptions) sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(c.Name); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
