// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package account

import (
	"errors"

	"github.com/samber/oops"
)

// Sentinel errors. Operations return oops errors wrapping one of these so
// callers can classify failures with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateEmail is returned when registering an email that is already in use.
	ErrDuplicateEmail = errors.New("email has already been registered")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthorized is returned by the authentication gate.
	ErrUnauthorized = errors.New("not authorized, please login")

	// ErrInvalidOrExpiredToken is returned when a reset token does not match a live record.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// ErrEmailDelivery is returned when the reset email could not be sent.
	ErrEmailDelivery = errors.New("email not sent, please try again")

	// ErrCorruptHash is returned when a stored password hash cannot be parsed.
	ErrCorruptHash = errors.New("corrupt password hash")
)

// Session token failures.
var (
	ErrTokenMalformed        = errors.New("session token malformed")
	ErrTokenInvalidSignature = errors.New("session token signature invalid")
	ErrTokenExpired          = errors.New("session token expired")
)

// Class is the externally visible category of a failure.
type Class int

// Failure classes, ordered by how the transport renders them.
const (
	ClassInternal Class = iota
	ClassBadRequest
	ClassUnauthorized
	ClassNotFound
)

// Classify maps an error to the class a transport should render it as.
// Unknown errors, corrupt hashes and email failures are internal.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassInternal
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrNotFound):
		return ClassBadRequest
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrTokenInvalidSignature),
		errors.Is(err, ErrTokenExpired):
		return ClassUnauthorized
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return ClassNotFound
	default:
		return ClassInternal
	}
}

// PublicMessage returns a message safe to show to the caller. It prefers the
// public message attached to the error and falls back to one per class.
func PublicMessage(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if msg := oopsErr.Public(); msg != "" {
			return msg
		}
	}
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return "Email has already been registered."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrValidation):
		return "Invalid request."
	case errors.Is(err, ErrNotFound):
		return "User not found."
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return "Invalid or expired token."
	case errors.Is(err, ErrEmailDelivery):
		return "Email not sent, please try again."
	case Classify(err) == ClassUnauthorized:
		return "Not authorized, please login."
	default:
		return "Internal server error."
	}
}
