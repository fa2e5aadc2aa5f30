// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package account implements the user-account lifecycle for accountd.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User with validated name and email and a pending password
//   - NewResetToken - creates a ResetToken with validated owner, hash and expiry
//
// A User's password is only ever persisted as a hash. SetPassword stores the
// plaintext transiently; Credentials.Create and Credentials.Save hash it
// before the repository sees the record.
//
// # Components
//
//   - PasswordHasher - salted argon2id hashing (bcrypt hashes verify for upgrade)
//   - SessionIssuer - signed, time-bounded bearer tokens (HS256 JWT)
//   - ResetTokens - single-use password reset tokens, stored as SHA-256 hashes
//   - Credentials - user persistence with the hash-before-save step
//   - Service - register, login, profile, password change and reset use cases
//
// Services are created with New* constructors that validate dependencies.
package account
