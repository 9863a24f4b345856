package model

import "time"

// PasswordReset is a pending verification code for resetting the password
// of the accounts registered with Phone. Only a bcrypt hash of the code is
// kept; there is at most one pending code per phone.
type PasswordReset struct {
	Phone     string    `db:"phone"`
	CodeHash  string    `db:"code_hash"`
	Attempts  int       `db:"attempts"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"create_time"`
}

// Expired reports whether the code can no longer be used at now.
func (r *PasswordReset) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
