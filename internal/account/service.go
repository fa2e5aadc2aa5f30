// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package account

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// dummyPasswordHash is verified against when the email is unknown so login
// takes the same time whether or not the account exists. It matches no password.
//
//nolint:gosec // G101: not a credential
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// ResetNotice is the content of a password reset email.
type ResetNotice struct {
	Name     string
	Email    string
	URL      string
	ValidFor time.Duration
}

// ResetNotifier delivers password reset links.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, notice ResetNotice) error
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// ServiceDeps are the collaborators of a Service.
type ServiceDeps struct {
	Credentials *Credentials
	Sessions    *SessionIssuer
	Resets      *ResetTokens
	Notifier    ResetNotifier
	// FrontendURL is the base of the reset link, e.g. https://app.example.com.
	FrontendURL string
	Logger      *slog.Logger
}

// Service implements the account use cases.
type Service struct {
	credentials *Credentials
	sessions    *SessionIssuer
	resets      *ResetTokens
	notifier    ResetNotifier
	frontendURL string
	logger      *slog.Logger
}

// NewService creates a Service. All collaborators except Logger are required.
func NewService(deps ServiceDeps) (*Service, error) {
	switch {
	case deps.Credentials == nil:
		return nil, oops.Code("ACCOUNT_INVALID_CONFIG").Errorf("credentials store is required")
	case deps.Sessions == nil:
		return nil, oops.Code("ACCOUNT_INVALID_CONFIG").Errorf("session issuer is required")
	case deps.Resets == nil:
		return nil, oops.Code("ACCOUNT_INVALID_CONFIG").Errorf("reset token manager is required")
	case deps.Notifier == nil:
		return nil, oops.Code("ACCOUNT_INVALID_CONFIG").Errorf("reset notifier is required")
	}
	if _, err := url.Parse(deps.FrontendURL); err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_CONFIG").
			With("frontend_url", deps.FrontendURL).
			Wrap(err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		credentials: deps.Credentials,
		sessions:    deps.Sessions,
		resets:      deps.Resets,
		notifier:    deps.Notifier,
		frontendURL: strings.TrimRight(deps.FrontendURL, "/"),
		logger:      logger,
	}, nil
}

// SessionTTL returns the lifetime of issued session tokens.
func (s *Service) SessionTTL() time.Duration {
	return s.sessions.TTL()
}

// Register creates an account and logs it in.
func (s *Service) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	if name == "" || email == "" || password == "" {
		return nil, oops.Code("ACCOUNT_MISSING_FIELDS").
			Public("Please fill in all required fields.").
			Wrapf(ErrValidation, "name, email and password are required")
	}
	user, err := NewUser(name, email, password)
	if err != nil {
		return nil, err
	}

	_, err = s.credentials.FindByEmail(ctx, user.Email)
	switch {
	case err == nil:
		return nil, oops.Code("ACCOUNT_DUPLICATE_EMAIL").
			With("email", user.Email).
			Public("Email has already been registered.").
			Wrap(ErrDuplicateEmail)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "FindByEmail").
			Wrap(err)
	}

	if err := s.credentials.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("email", user.Email).
				Public("Email has already been registered.").
				Wrap(err)
		}
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "Create").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account registered", "user_id", user.ID.String())
	return s.issue(user)
}

// Login verifies credentials and issues a session token. An unknown email
// and a wrong password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, oops.Code("ACCOUNT_MISSING_FIELDS").
			Public("Please add email and password.").
			Wrapf(ErrValidation, "email and password are required")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	user, lookupErr := s.credentials.FindByEmail(ctx, email)
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return nil, oops.Code("ACCOUNT_LOGIN_FAILED").
			With("operation", "FindByEmail").
			Wrap(lookupErr)
	}

	if lookupErr != nil {
		// Burn the same hashing time as a real check.
		_, _ = s.credentials.Verify(&User{PasswordHash: dummyPasswordHash}, password) //nolint:errcheck // result is discarded
		return nil, invalidCredentials()
	}

	valid, err := s.credentials.Verify(user, password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LOGIN_FAILED").
			With("operation", "Verify").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	if !valid {
		return nil, invalidCredentials()
	}

	if s.credentials.NeedsUpgrade(user) {
		user.SetPassword(password)
		if err := s.credentials.Save(ctx, user); err != nil {
			s.logger.WarnContext(ctx, "best-effort update failed",
				"operation", "hash_upgrade",
				"user_id", user.ID.String(),
				"error", err.Error())
		}
	}

	return s.issue(user)
}

// Logout has no server-side effect; session tokens are not revocable and the
// transport discards the client's copy.
func (s *Service) Logout(ctx context.Context) {
	s.logger.DebugContext(ctx, "logout")
}

// LoginStatus reports whether token is a currently valid session token.
func (s *Service) LoginStatus(token string) bool {
	if token == "" {
		return false
	}
	_, err := s.sessions.Verify(token)
	return err == nil
}

// Authenticate resolves a session token to a freshly loaded user.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, unauthorized("missing token")
	}
	userID, err := s.sessions.Verify(token)
	if err != nil {
		return nil, oops.Code("ACCOUNT_UNAUTHORIZED").
			With("reason", err.Error()).
			Public("Not authorized, please login.").
			Wrap(ErrUnauthorized)
	}

	user, err := s.credentials.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, unauthorized("user not found")
		}
		return nil, oops.Code("ACCOUNT_AUTHENTICATE_FAILED").
			With("operation", "Get").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return user, nil
}

// Profile returns the public profile of userID.
func (s *Service) Profile(ctx context.Context, userID ulid.ULID) (Profile, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return user.Profile(), nil
}

// UpdateProfile applies update to userID's profile. The email never changes.
func (s *Service) UpdateProfile(ctx context.Context, userID ulid.ULID, update ProfileUpdate) (Profile, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	if err := user.Apply(update); err != nil {
		return Profile{}, err
	}
	if err := s.credentials.Save(ctx, user); err != nil {
		return Profile{}, oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "Save").
			Wrap(err)
	}
	return user.Profile(), nil
}

// ChangePassword replaces the password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, userID ulid.ULID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return oops.Code("ACCOUNT_MISSING_FIELDS").
			Public("Please add old and new password.").
			Wrapf(ErrValidation, "old and new password are required")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	valid, err := s.credentials.Verify(user, oldPassword)
	if err != nil {
		return oops.Code("ACCOUNT_CHANGE_PASSWORD_FAILED").
			With("operation", "Verify").
			Wrap(err)
	}
	if !valid {
		return oops.Code("ACCOUNT_OLD_PASSWORD_INCORRECT").
			Public("Old password is incorrect.").
			Wrap(ErrInvalidCredentials)
	}

	user.SetPassword(newPassword)
	if err := s.credentials.Save(ctx, user); err != nil {
		return oops.Code("ACCOUNT_CHANGE_PASSWORD_FAILED").
			With("operation", "Save").
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "password changed", "user_id", user.ID.String())
	return nil
}

// ForgotPassword issues a reset token for email and mails the reset link.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return oops.Code("ACCOUNT_MISSING_FIELDS").
			Public("Please add your email.").
			Wrapf(ErrValidation, "email is required")
	}

	user, err := s.credentials.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("ACCOUNT_NOT_FOUND").
				Public("User does not exist.").
				Wrap(err)
		}
		return oops.Code("ACCOUNT_FORGOT_PASSWORD_FAILED").
			With("operation", "FindByEmail").
			Wrap(err)
	}

	token, err := s.resets.Issue(ctx, user.ID)
	if err != nil {
		return oops.Code("ACCOUNT_FORGOT_PASSWORD_FAILED").
			With("operation", "Issue").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	notice := ResetNotice{
		Name:     user.Name,
		Email:    user.Email,
		URL:      s.ResetURL(token),
		ValidFor: s.resets.TTL(),
	}
	if err := s.notifier.SendPasswordReset(ctx, notice); err != nil {
		return oops.Code("ACCOUNT_EMAIL_FAILED").
			With("user_id", user.ID.String()).
			With("cause", err.Error()).
			Public("Email not sent, please try again.").
			Wrap(ErrEmailDelivery)
	}

	s.logger.InfoContext(ctx, "password reset requested", "user_id", user.ID.String())
	return nil
}

// ResetURL builds the frontend link that carries a plaintext reset token.
func (s *Service) ResetURL(token string) string {
	return s.frontendURL + "/resetpassword/" + url.PathEscape(token)
}

// ResetPassword redeems a reset token and sets a new password. A rejected
// password leaves the token usable; once redeemed the token is gone even if
// the save fails.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	userID, err := s.resets.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredToken) {
			return oops.Code("ACCOUNT_RESET_TOKEN_INVALID").
				Public("Invalid or expired token.").
				Wrap(err)
		}
		return oops.Code("ACCOUNT_RESET_PASSWORD_FAILED").
			With("operation", "Consume").
			Wrap(err)
	}

	user, err := s.credentials.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("ACCOUNT_RESET_TOKEN_INVALID").
				With("user_id", userID.String()).
				Public("Invalid or expired token.").
				Wrap(ErrInvalidOrExpiredToken)
		}
		return oops.Code("ACCOUNT_RESET_PASSWORD_FAILED").
			With("operation", "Get").
			Wrap(err)
	}

	user.SetPassword(newPassword)
	if err := s.credentials.Save(ctx, user); err != nil {
		return oops.Code("ACCOUNT_RESET_PASSWORD_FAILED").
			With("operation", "Save").
			With("user_id", userID.String()).
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "password reset", "user_id", userID.String())
	return nil
}

// PurgeExpiredResets deletes expired reset tokens and returns how many were removed.
func (s *Service) PurgeExpiredResets(ctx context.Context) (int64, error) {
	return s.resets.PurgeExpired(ctx)
}

func (s *Service) load(ctx context.Context, userID ulid.ULID) (*User, error) {
	user, err := s.credentials.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").
				With("user_id", userID.String()).
				Public("User not found.").
				Wrap(err)
		}
		return nil, oops.Code("ACCOUNT_LOAD_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return user, nil
}

func (s *Service) issue(user *User) (*AuthResult, error) {
	token, expiresAt, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, oops.Code("ACCOUNT_SESSION_FAILED").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func invalidCredentials() error {
	return oops.Code("ACCOUNT_INVALID_CREDENTIALS").
		Public("Invalid email or password.").
		Wrap(ErrInvalidCredentials)
}

func unauthorized(reason string) error {
	return oops.Code("ACCOUNT_UNAUTHORIZED").
		With("reason", reason).
		Public("Not authorized, please login.").
		Wrap(ErrUnauthorized)
}
