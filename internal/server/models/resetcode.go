package models

import "time"

// ResetCode is a single-use numeric password-reset credential. At most one
// active code exists per username; creating a new one replaces the old.
type ResetCode struct {
	Username  string
	Code      int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the code is no longer usable at the given time.
func (c *ResetCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
