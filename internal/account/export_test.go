// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package account

import "time"

// SetClock replaces the time source of a ResetTokens manager.
func (m *ResetTokens) SetClock(now func() time.Time) {
	m.now = now
}

// PendingPassword exposes the unsaved plaintext password.
func (u *User) PendingPassword() string {
	return u.pendingPassword
}
