// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi_test

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/accountd/accountd/internal/account"
)

const validToken = "valid-session-token"

// fakeService is an AccountService whose behavior is set per test.
type fakeService struct {
	user *account.User

	registerErr error
	loginErr    error
	updateErr   error
	changeErr   error
	forgotErr   error
	resetErr    error

	lastUpdate     account.ProfileUpdate
	lastOld        string
	lastNew        string
	lastForgot     string
	lastResetToken string
	logouts        int
	panicOnProfile bool
}

func newFakeService() *fakeService {
	return &fakeService{
		user: &account.User{
			ID:    ulid.Make(),
			Name:  "Ada Lovelace",
			Email: "ada@example.com",
			Photo: account.DefaultPhoto,
			Phone: account.DefaultPhone,
			Bio:   account.DefaultBio,
		},
	}
}

func (f *fakeService) result() *account.AuthResult {
	return &account.AuthResult{
		User:      f.user,
		Token:     validToken,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func (f *fakeService) Register(_ context.Context, name, email, _ string) (*account.AuthResult, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.user.Name = name
	f.user.Email = email
	return f.result(), nil
}

func (f *fakeService) Login(_ context.Context, _, _ string) (*account.AuthResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.result(), nil
}

func (f *fakeService) Logout(_ context.Context) {
	f.logouts++
}

func (f *fakeService) LoginStatus(token string) bool {
	return token == validToken
}

func (f *fakeService) Authenticate(_ context.Context, token string) (*account.User, error) {
	if token != validToken {
		return nil, fmt.Errorf("verify: %w", account.ErrUnauthorized)
	}
	return f.user, nil
}

func (f *fakeService) Profile(_ context.Context, userID ulid.ULID) (account.Profile, error) {
	if f.panicOnProfile {
		panic("profile exploded")
	}
	if userID != f.user.ID {
		return account.Profile{}, fmt.Errorf("load: %w", account.ErrNotFound)
	}
	return f.user.Profile(), nil
}

func (f *fakeService) UpdateProfile(_ context.Context, _ ulid.ULID, update account.ProfileUpdate) (account.Profile, error) {
	f.lastUpdate = update
	if f.updateErr != nil {
		return account.Profile{}, f.updateErr
	}
	if update.Name != "" {
		f.user.Name = update.Name
	}
	if update.Bio != "" {
		f.user.Bio = update.Bio
	}
	return f.user.Profile(), nil
}

func (f *fakeService) ChangePassword(_ context.Context, _ ulid.ULID, oldPassword, newPassword string) error {
	f.lastOld, f.lastNew = oldPassword, newPassword
	return f.changeErr
}

func (f *fakeService) ForgotPassword(_ context.Context, email string) error {
	f.lastForgot = email
	return f.forgotErr
}

func (f *fakeService) ResetPassword(_ context.Context, token, _ string) error {
	f.lastResetToken = token
	return f.resetErr
}
