// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package httpapi exposes the account service as a JSON HTTP API.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/internal/observability"
)

// tracerName identifies spans created by this package.
const tracerName = "github.com/accountd/accountd/internal/httpapi"

// AccountService is the part of *account.Service the API calls.
type AccountService interface {
	Register(ctx context.Context, name, email, password string) (*account.AuthResult, error)
	Login(ctx context.Context, email, password string) (*account.AuthResult, error)
	Logout(ctx context.Context)
	LoginStatus(token string) bool
	Authenticate(ctx context.Context, token string) (*account.User, error)
	Profile(ctx context.Context, userID ulid.ULID) (account.Profile, error)
	UpdateProfile(ctx context.Context, userID ulid.ULID, update account.ProfileUpdate) (account.Profile, error)
	ChangePassword(ctx context.Context, userID ulid.ULID, oldPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

var _ AccountService = (*account.Service)(nil)

// Options configure the router. Zero values are usable.
type Options struct {
	Cookie  CookieOptions
	Metrics *observability.Metrics
	Logger  *slog.Logger
	Tracer  trace.Tracer
	// MaxBodyBytes caps request bodies. Default 1 MiB.
	MaxBodyBytes int64
}

func (o Options) withDefaults() Options {
	o.Cookie = o.Cookie.withDefaults()
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	return o
}

// NewRouter builds the API handler. Account routes live under /api/users.
func NewRouter(svc AccountService, opts Options) http.Handler {
	opts = opts.withDefaults()
	h := &handler{
		svc:     svc,
		cookie:  opts.Cookie,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		maxBody: opts.MaxBodyBytes,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(traceRequests(opts.Tracer))
	r.Use(logRequests(opts.Logger, opts.Metrics))
	r.Use(recoverPanics(opts.Logger))

	r.Get("/", h.home)

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Get("/logout", h.logout)
		r.Get("/loggedin", h.loginStatus)
		r.Post("/forgotpassword", h.forgotPassword)
		r.Put("/resetpassword/{resetToken}", h.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Get("/getuser", h.getUser)
			r.Patch("/updateuser", h.updateUser)
			r.Patch("/changepassword", h.changePassword)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "Not found: " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, messageResponse{Message: "Method not allowed."})
	})

	return r
}

// NewServer wraps handler in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
