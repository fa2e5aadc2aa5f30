// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package account

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Field constraints.
const (
	MinNameLength     = 3
	MaxNameLength     = 23
	MinPasswordLength = 6
	MaxBioLength      = 250
)

// Profile defaults applied to new users.
const (
	DefaultPhoto = "https://ibb.co/d6BysfB"
	DefaultPhone = "+88 "
	DefaultBio   = "bio"
)

var emailRegex = regexp.MustCompile(`^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`)

// User is an account record. PasswordHash is always a hasher output once
// the record has been persisted.
type User struct {
	ID           ulid.ULID
	Name         string
	Email        string
	PasswordHash string
	Photo        string
	Phone        string
	Bio          string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// pendingPassword holds a plaintext password between SetPassword and
	// the next Credentials.Create or Credentials.Save.
	pendingPassword string
}

// Profile is the public view of a User. It never carries the password.
type Profile struct {
	ID    ulid.ULID `json:"_id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Photo string    `json:"photo"`
	Phone string    `json:"phone"`
	Bio   string    `json:"bio"`
}

// ProfileUpdate carries optional profile changes. Empty fields keep the
// current value. Email is accepted but never applied.
type ProfileUpdate struct {
	Name  string
	Email string
	Photo string
	Phone string
	Bio   string
}

// NewUser creates a validated User with profile defaults and a pending password.
// The email is normalized to lower case.
func NewUser(name, email, password string) (*User, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &User{
		ID:              ulid.Make(),
		Name:            name,
		Email:           normalized,
		Photo:           DefaultPhoto,
		Phone:           DefaultPhone,
		Bio:             DefaultBio,
		CreatedAt:       now,
		UpdatedAt:       now,
		pendingPassword: password,
	}, nil
}

// SetPassword records a new plaintext password to be hashed on the next save.
func (u *User) SetPassword(password string) {
	u.pendingPassword = password
}

// HasPendingPassword reports whether the password changed since the last save.
func (u *User) HasPendingPassword() bool {
	return u.pendingPassword != ""
}

// Profile returns the public fields of the user.
func (u *User) Profile() Profile {
	return Profile{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Photo: u.Photo,
		Phone: u.Phone,
		Bio:   u.Bio,
	}
}

// Apply merges a ProfileUpdate into the user. The email is never changed.
func (u *User) Apply(update ProfileUpdate) error {
	name := firstNonEmpty(update.Name, u.Name)
	if err := ValidateName(name); err != nil {
		return err
	}
	bio := firstNonEmpty(update.Bio, u.Bio)
	if err := ValidateBio(bio); err != nil {
		return err
	}

	u.Name = name
	u.Photo = firstNonEmpty(update.Photo, u.Photo)
	u.Phone = firstNonEmpty(update.Phone, u.Phone)
	u.Bio = bio
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func firstNonEmpty(candidate, current string) string {
	if candidate != "" {
		return candidate
	}
	return current
}

// ValidateName checks the display name length.
func ValidateName(name string) error {
	if name == "" {
		return oops.Code("ACCOUNT_INVALID_NAME").
			Public("Please add your name.").
			Wrapf(ErrValidation, "name is required")
	}
	n := utf8.RuneCountInString(name)
	if n < MinNameLength {
		return oops.Code("ACCOUNT_INVALID_NAME").
			With("min", MinNameLength).
			Public("Name must be at least 3 characters.").
			Wrapf(ErrValidation, "name must be at least %d characters", MinNameLength)
	}
	if n > MaxNameLength {
		return oops.Code("ACCOUNT_INVALID_NAME").
			With("max", MaxNameLength).
			Public("Name can't be more than 23 characters.").
			Wrapf(ErrValidation, "name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// NormalizeEmail trims, validates and lower-cases an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", oops.Code("ACCOUNT_INVALID_EMAIL").
			Public("Please add your email.").
			Wrapf(ErrValidation, "email is required")
	}
	if !emailRegex.MatchString(email) {
		return "", oops.Code("ACCOUNT_INVALID_EMAIL").
			Public("Please enter a valid email.").
			Wrapf(ErrValidation, "email is malformed")
	}
	return strings.ToLower(email), nil
}

// ValidatePassword checks password presence and minimum length.
func ValidatePassword(password string) error {
	if password == "" {
		return oops.Code("ACCOUNT_INVALID_PASSWORD").
			Public("Please add a password.").
			Wrapf(ErrValidation, "password is required")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return oops.Code("ACCOUNT_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Public("Password must be at least 6 characters.").
			Wrapf(ErrValidation, "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateBio checks the bio length.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return oops.Code("ACCOUNT_INVALID_BIO").
			With("max", MaxBioLength).
			Public("Bio can't be more than 250 characters.").
			Wrapf(ErrValidation, "bio must be at most %d characters", MaxBioLength)
	}
	return nil
}

// UserRepository manages user persistence. Implementations store whatever
// PasswordHash they are given; hashing happens in Credentials.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicateEmail if the email is taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive). Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update replaces the mutable fields of an existing user.
	Update(ctx context.Context, user *User) error
}
