// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package account

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argon2SaltLen = 16 // salt length in bytes
	argon2KeyLen  = 32 // output length in bytes

	// maxArgon2Memory caps the memory a stored hash may request, in KiB (4 GiB).
	maxArgon2Memory = 1 << 22
)

// Argon2Params is the argon2id work factor.
type Argon2Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8  // parallelism
}

// DefaultArgon2Params are the OWASP-recommended argon2id parameters.
var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
}

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("ACCOUNT_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the hash should be re-hashed with current parameters.
	NeedsUpgrade(hash string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id. It also verifies
// bcrypt hashes so accounts imported from older deployments can log in and
// be upgraded.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates an Argon2idHasher with the default parameters.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultArgon2Params}
}

// NewArgon2idHasherWithParams creates an Argon2idHasher with explicit parameters.
// Zero fields fall back to the defaults.
func NewArgon2idHasherWithParams(params Argon2Params) *Argon2idHasher {
	if params.Time == 0 {
		params.Time = DefaultArgon2Params.Time
	}
	if params.Memory == 0 {
		params.Memory = DefaultArgon2Params.Memory
	}
	if params.Threads == 0 {
		params.Threads = DefaultArgon2Params.Threads
	}
	return &Argon2idHasher{params: params}
}

// Hash produces an argon2id hash of the password in PHC string format.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("ACCOUNT_SALT_FAILED").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks if the password matches the hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		return verifyBcrypt(password, encodedHash)
	}

	params, salt, expected, err := parseArgon2id(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, uint32(len(expected))) //nolint:gosec // length bounded by parseArgon2id
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// NeedsUpgrade returns true if the hash is not argon2id or was produced
// with parameters other than the hasher's current ones.
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	if !strings.HasPrefix(hash, "$argon2id$") {
		return true
	}
	params, _, _, err := parseArgon2id(hash)
	if err != nil {
		return true
	}
	return params != h.params
}

func parseArgon2id(encodedHash string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return params, nil, nil, oops.Code("ACCOUNT_INVALID_HASH").Wrapf(ErrCorruptHash, "invalid hash format")
	}
	if parts[1] != "argon2id" {
		return params, nil, nil, oops.Code("ACCOUNT_INVALID_HASH").Wrapf(ErrCorruptHash, "unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, oops.Code("ACCOUNT_INVALID_HASH").Wrapf(ErrCorruptHash, "invalid version: %v", err)
	}
	if version != argon2.Version {
		return params, nil, nil, oops.Code("ACCOUNT_INVALID_HASH").Wrapf(ErrCorruptHash, "unsupported argon2 version: %d", version)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return params, nil, nil, oops.Code("ACCOUNT_INVALID_HASH").Wrapf(ErrCorruptHash, "invalid parameters: %v", err)
	}
	if threads == 0 || threads > 255 {
		return params, nil, nil, oops.Code("ACCOUNT_INVALID_HASH").Wrapf(ErrCorruptHash, "threads value %d out of range", threads)
	}
	if iterations == 0 {
		return params, nil, nil, oops.Code("ACCOUNT_INVALID_HASH").Wrapf(ErrCorruptHash, "iterations must be positive")
	}
	if memory < 8*threads || memory > maxArgon2Memory {
		return params, nil, nil, oops.Code("ACCOUNT_INVALID_HASH").
			With("threads", threads).
			Wrapf(ErrCorruptHash, "memory value %d out of range", memory)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, oops.Code("ACCOUNT_INVALID_HASH").Wrapf(ErrCorruptHash, "invalid salt: %v", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, oops.Code("ACCOUNT_INVALID_HASH").Wrapf(ErrCorruptHash, "invalid key: %v", err)
	}
	if len(key) == 0 || len(key) > 1<<10 {
		return params, nil, nil, oops.Code("ACCOUNT_INVALID_HASH").Wrapf(ErrCorruptHash, "invalid hash key length: %d", len(key))
	}

	params = Argon2Params{Time: iterations, Memory: memory, Threads: uint8(threads)}
	return params, salt, key, nil
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}

func verifyBcrypt(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code("ACCOUNT_INVALID_HASH").Wrapf(ErrCorruptHash, "bcrypt: %v", err)
	}
}
