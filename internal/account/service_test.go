// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package account_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/internal/account/mocks"
	"github.com/accountd/accountd/pkg/errutil"
)

type serviceFixture struct {
	svc      *account.Service
	users    *memUsers
	resets   *memResets
	notifier *mocks.MockResetNotifier
	issuer   *account.SessionIssuer
	logs     *bytes.Buffer
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	users := newMemUsers()
	resets := newMemResets()
	creds, err := account.NewCredentials(users, account.NewArgon2idHasherWithParams(fastParams))
	require.NoError(t, err)
	issuer, err := account.NewSessionIssuer(testSecret)
	require.NoError(t, err)
	tokens, err := account.NewResetTokens(resets, account.DefaultResetTTL)
	require.NoError(t, err)
	notifier := mocks.NewMockResetNotifier(t)

	var logs bytes.Buffer
	svc, err := account.NewService(account.ServiceDeps{
		Credentials: creds,
		Sessions:    issuer,
		Resets:      tokens,
		Notifier:    notifier,
		FrontendURL: "https://app.example.com/",
		Logger:      slog.New(slog.NewJSONHandler(&logs, nil)),
	})
	require.NoError(t, err)

	return &serviceFixture{svc: svc, users: users, resets: resets, notifier: notifier, issuer: issuer, logs: &logs}
}

// captureReset expects one reset email and returns a func yielding its notice.
func (f *serviceFixture) captureReset(ctx context.Context) func() account.ResetNotice {
	var notice account.ResetNotice
	f.notifier.On("SendPasswordReset", ctx, mock.AnythingOfType("account.ResetNotice")).
		Run(func(args mock.Arguments) { notice = args.Get(1).(account.ResetNotice) }).
		Return(nil).Once()
	return func() account.ResetNotice { return notice }
}

func tokenFromURL(t *testing.T, url string) string {
	t.Helper()
	const prefix = "https://app.example.com/resetpassword/"
	require.True(t, strings.HasPrefix(url, prefix), "unexpected reset url %q", url)
	return strings.TrimPrefix(url, prefix)
}

func TestNewService_NilDependencies(t *testing.T) {
	creds, err := account.NewCredentials(newMemUsers(), account.NewArgon2idHasherWithParams(fastParams))
	require.NoError(t, err)
	issuer, err := account.NewSessionIssuer(testSecret)
	require.NoError(t, err)
	tokens, err := account.NewResetTokens(newMemResets(), 0)
	require.NoError(t, err)
	notifier := mocks.NewMockResetNotifier(t)

	full := account.ServiceDeps{Credentials: creds, Sessions: issuer, Resets: tokens, Notifier: notifier}

	tests := []struct {
		name        string
		mutate      func(*account.ServiceDeps)
		expectError string
	}{
		{"nil credentials", func(d *account.ServiceDeps) { d.Credentials = nil }, "credentials store is required"},
		{"nil sessions", func(d *account.ServiceDeps) { d.Sessions = nil }, "session issuer is required"},
		{"nil resets", func(d *account.ServiceDeps) { d.Resets = nil }, "reset token manager is required"},
		{"nil notifier", func(d *account.ServiceDeps) { d.Notifier = nil }, "reset notifier is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := full
			tt.mutate(&deps)
			svc, err := account.NewService(deps)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user and issues session", func(t *testing.T) {
		f := newServiceFixture(t)

		res, err := f.svc.Register(ctx, "Alice", "A@X.com", "secret1")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, "a@x.com", res.User.Email)

		userID, err := f.issuer.Verify(res.Token)
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, userID)

		stored := f.users.passwordHash(res.User.ID)
		assert.True(t, strings.HasPrefix(stored, "$argon2id$"))
		assert.NotContains(t, stored, "secret1")
	})

	t.Run("rejects duplicate email case-insensitively", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Register(ctx, "Alice", "a@x.com", "secret1")
		require.NoError(t, err)

		_, err = f.svc.Register(ctx, "Alice Two", "A@X.COM", "secret2")
		require.Error(t, err)
		assert.True(t, errors.Is(err, account.ErrDuplicateEmail))
		assert.Equal(t, account.ClassBadRequest, account.Classify(err))
		errutil.AssertErrorCode(t, err, "ACCOUNT_DUPLICATE_EMAIL")
	})

	validation := []struct {
		name, userName, email, password string
	}{
		{"missing fields", "", "", ""},
		{"short password", "Alice", "a@x.com", "12345"},
		{"bad email", "Alice", "nope", "secret1"},
		{"short name", "Al", "a@x.com", "secret1"},
	}
	for _, tt := range validation {
		t.Run("validation: "+tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			_, err := f.svc.Register(ctx, tt.userName, tt.email, tt.password)
			require.Error(t, err)
			assert.True(t, errors.Is(err, account.ErrValidation))
		})
	}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Register(ctx, "Alice", "a@x.com", "secret1")
		require.NoError(t, err)

		_, wrongPass := f.svc.Login(ctx, "a@x.com", "wrong1")
		_, unknown := f.svc.Login(ctx, "nobody@x.com", "secret1")

		require.Error(t, wrongPass)
		require.Error(t, unknown)
		assert.True(t, errors.Is(wrongPass, account.ErrInvalidCredentials))
		assert.True(t, errors.Is(unknown, account.ErrInvalidCredentials))
		assert.Equal(t, wrongPass.Error(), unknown.Error())
		assert.Equal(t, account.PublicMessage(wrongPass), account.PublicMessage(unknown))
	})

	t.Run("succeeds with any email casing", func(t *testing.T) {
		f := newServiceFixture(t)
		reg, err := f.svc.Register(ctx, "Alice", "a@x.com", "secret1")
		require.NoError(t, err)

		res, err := f.svc.Login(ctx, " A@X.COM ", "secret1")
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, res.User.ID)

		userID, err := f.issuer.Verify(res.Token)
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, userID)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Login(ctx, "", "secret1")
		assert.True(t, errors.Is(err, account.ErrValidation))
	})

	t.Run("upgrades legacy bcrypt hash", func(t *testing.T) {
		f := newServiceFixture(t)
		legacy, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
		require.NoError(t, err)
		user := &account.User{ID: ulid.Make(), Name: "Legacy", Email: "old@x.com", PasswordHash: string(legacy)}
		require.NoError(t, f.users.Create(ctx, user))

		_, err = f.svc.Login(ctx, "old@x.com", "secret1")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(f.users.passwordHash(user.ID), "$argon2id$"))

		_, err = f.svc.Login(ctx, "old@x.com", "secret1")
		require.NoError(t, err)
	})

	for name, stored := range map[string]string{
		"garbage":         "garbage",
		"zero iterations": "$argon2id$v=19$m=65536,t=0,p=4$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
	} {
		t.Run("corrupt stored hash is internal: "+name, func(t *testing.T) {
			f := newServiceFixture(t)
			user := &account.User{ID: ulid.Make(), Name: "Broken", Email: "b@x.com", PasswordHash: stored}
			require.NoError(t, f.users.Create(ctx, user))

			var err error
			require.NotPanics(t, func() { _, err = f.svc.Login(ctx, "b@x.com", "secret1") })
			require.Error(t, err)
			assert.True(t, errors.Is(err, account.ErrCorruptHash))
			assert.Equal(t, account.ClassInternal, account.Classify(err))
		})
	}
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	reg, err := f.svc.Register(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)
	id := reg.User.ID

	err = f.svc.ChangePassword(ctx, id, "", "secret2")
	assert.True(t, errors.Is(err, account.ErrValidation))

	err = f.svc.ChangePassword(ctx, id, "secret1", "123")
	assert.True(t, errors.Is(err, account.ErrValidation))

	err = f.svc.ChangePassword(ctx, ulid.Make(), "secret1", "secret2")
	assert.True(t, errors.Is(err, account.ErrNotFound))

	err = f.svc.ChangePassword(ctx, id, "wrongold", "secret2")
	assert.True(t, errors.Is(err, account.ErrInvalidCredentials))
	assert.Equal(t, "Old password is incorrect.", account.PublicMessage(err))

	require.NoError(t, f.svc.ChangePassword(ctx, id, "secret1", "secret2"))

	_, err = f.svc.Login(ctx, "a@x.com", "secret1")
	assert.True(t, errors.Is(err, account.ErrInvalidCredentials))
	_, err = f.svc.Login(ctx, "a@x.com", "secret2")
	assert.NoError(t, err)
}

func TestService_Profile(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	reg, err := f.svc.Register(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)

	profile, err := f.svc.Profile(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.User.Profile(), profile)

	_, err = f.svc.Profile(ctx, ulid.Make())
	require.Error(t, err)
	assert.True(t, errors.Is(err, account.ErrNotFound))
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	reg, err := f.svc.Register(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)

	profile, err := f.svc.UpdateProfile(ctx, reg.User.ID, account.ProfileUpdate{
		Email: "changed@x.com",
		Phone: "+1 555 0100",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", profile.Email)
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, "+1 555 0100", profile.Phone)
	assert.Equal(t, account.DefaultBio, profile.Bio)

	stored, err := f.svc.Profile(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, profile, stored)

	// Password is untouched by profile edits.
	_, err = f.svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = f.svc.UpdateProfile(ctx, reg.User.ID, account.ProfileUpdate{Name: "x"})
	assert.True(t, errors.Is(err, account.ErrValidation))
}

func TestService_ForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	reg, err := f.svc.Register(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)

	notice := f.captureReset(ctx)
	require.NoError(t, f.svc.ForgotPassword(ctx, "a@x.com"))
	assert.Equal(t, "Alice", notice().Name)
	assert.Equal(t, "a@x.com", notice().Email)
	assert.Equal(t, 30*time.Minute, notice().ValidFor)
	token := tokenFromURL(t, notice().URL)
	assert.True(t, strings.HasSuffix(token, reg.User.ID.String()))
	assert.NotContains(t, f.logs.String(), token)

	// A rejected password does not burn the token.
	err = f.svc.ResetPassword(ctx, token, "123")
	assert.True(t, errors.Is(err, account.ErrValidation))

	require.NoError(t, f.svc.ResetPassword(ctx, token, "newpass1"))

	err = f.svc.ResetPassword(ctx, token, "newpass2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, account.ErrInvalidOrExpiredToken))
	assert.Equal(t, account.ClassNotFound, account.Classify(err))

	_, err = f.svc.Login(ctx, "a@x.com", "newpass1")
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "a@x.com", "secret1")
	assert.True(t, errors.Is(err, account.ErrInvalidCredentials))
}

func TestService_ForgotPassword_SecondRequestInvalidatesFirst(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	_, err := f.svc.Register(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)

	first := f.captureReset(ctx)
	require.NoError(t, f.svc.ForgotPassword(ctx, "a@x.com"))
	firstToken := tokenFromURL(t, first().URL)

	second := f.captureReset(ctx)
	require.NoError(t, f.svc.ForgotPassword(ctx, "a@x.com"))
	secondToken := tokenFromURL(t, second().URL)
	assert.Equal(t, 1, f.resets.count())

	err = f.svc.ResetPassword(ctx, firstToken, "newpass1")
	assert.True(t, errors.Is(err, account.ErrInvalidOrExpiredToken))
	require.NoError(t, f.svc.ResetPassword(ctx, secondToken, "newpass1"))
}

func TestService_ForgotPassword_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		f := newServiceFixture(t)
		err := f.svc.ForgotPassword(ctx, "nobody@x.com")
		require.Error(t, err)
		assert.True(t, errors.Is(err, account.ErrNotFound))
		f.notifier.AssertNotCalled(t, "SendPasswordReset", mock.Anything, mock.Anything)
	})

	t.Run("email delivery failure", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Register(ctx, "Alice", "a@x.com", "secret1")
		require.NoError(t, err)
		f.notifier.On("SendPasswordReset", ctx, mock.Anything).Return(assert.AnError)

		err = f.svc.ForgotPassword(ctx, "a@x.com")
		require.Error(t, err)
		assert.True(t, errors.Is(err, account.ErrEmailDelivery))
		assert.Equal(t, account.ClassInternal, account.Classify(err))
		assert.Equal(t, "Email not sent, please try again.", account.PublicMessage(err))
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	reg, err := f.svc.Register(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)

	user, err := f.svc.Authenticate(ctx, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, user.ID)

	orphan, _, err := f.issuer.Issue(ulid.Make())
	require.NoError(t, err)

	for name, token := range map[string]string{
		"missing":      "",
		"garbage":      "abc",
		"unknown user": orphan,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Authenticate(ctx, token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, account.ErrUnauthorized))
			assert.Equal(t, account.ClassUnauthorized, account.Classify(err))
		})
	}
}

func TestService_Logout_LeavesTokenValid(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	reg, err := f.svc.Register(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)

	f.svc.Logout(ctx)

	assert.True(t, f.svc.LoginStatus(reg.Token))
	user, err := f.svc.Authenticate(ctx, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, user.ID)
}

func TestService_LoginStatus(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	reg, err := f.svc.Register(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)

	assert.True(t, f.svc.LoginStatus(reg.Token))
	assert.False(t, f.svc.LoginStatus(""))
	assert.False(t, f.svc.LoginStatus("not-a-token"))
}

func TestService_PurgeExpiredResets(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	expired, err := account.NewResetToken(ulid.Make(), account.HashResetToken("x"),
		time.Now().Add(-time.Hour), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, f.resets.Replace(ctx, expired))

	n, err := f.svc.PurgeExpiredResets(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestService_Login_LogsUpgradeFailure(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	creds, err := account.NewCredentials(users, hasher)
	require.NoError(t, err)
	issuer, err := account.NewSessionIssuer(testSecret)
	require.NoError(t, err)
	tokens, err := account.NewResetTokens(newMemResets(), 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	svc, err := account.NewService(account.ServiceDeps{
		Credentials: creds,
		Sessions:    issuer,
		Resets:      tokens,
		Notifier:    mocks.NewMockResetNotifier(t),
		Logger:      slog.New(slog.NewJSONHandler(&buf, nil)),
	})
	require.NoError(t, err)

	user := &account.User{ID: ulid.Make(), Email: "a@x.com", PasswordHash: "$2a$legacy"}
	users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
	hasher.On("Verify", "secret1", "$2a$legacy").Return(true, nil)
	hasher.On("NeedsUpgrade", "$2a$legacy").Return(true)
	hasher.On("Hash", "secret1").Return("$argon2id$new", nil)
	users.On("Update", ctx, user).Return(errors.New("database timeout"))

	_, err = svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err, "login succeeds even when the upgrade cannot be saved")

	var entry struct {
		Level     string `json:"level"`
		Msg       string `json:"msg"`
		Operation string `json:"operation"`
		Error     string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Contains(t, entry.Msg, "best-effort")
	assert.Equal(t, "hash_upgrade", entry.Operation)
	assert.Contains(t, entry.Error, "database timeout")
}
