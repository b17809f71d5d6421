package domain

import "time"

// TokenStatus is the derived lifecycle state of an access token.
type TokenStatus string

const (
	TokenStatusUsed        TokenStatus = "USED"
	TokenStatusExpired     TokenStatus = "EXPIRED"
	TokenStatusNotYetValid TokenStatus = "NOT_YET_VALID"
	TokenStatusValid       TokenStatus = "VALID"
)

// AccessToken is a short-lived, single-use credential granting one student entry
// to one exam. At most one live token exists per (exam, student) pair and the
// token string is globally unique.
type AccessToken struct {
	ID         string
	ExamID     string
	StudentID  string
	Token      string
	IsUsed     bool
	ValidFrom  time.Time
	ValidUntil time.Time
	CreatedAt  time.Time
	UsedAt     *time.Time
}

// Validate enforces the validity window invariant.
func (t *AccessToken) Validate() error {
	if !t.ValidUntil.After(t.ValidFrom) {
		return ErrInvalidWindow
	}
	return nil
}

// Status derives the lifecycle state at the given instant. Precedence:
// Used > Expired > NotYetValid > Valid.
func (t *AccessToken) Status(now time.Time) TokenStatus {
	switch {
	case t.IsUsed:
		return TokenStatusUsed
	case now.After(t.ValidUntil):
		return TokenStatusExpired
	case now.Before(t.ValidFrom):
		return TokenStatusNotYetValid
	default:
		return TokenStatusValid
	}
}

// IsExpired reports whether the validity window has closed.
func (t *AccessToken) IsExpired(now time.Time) bool {
	return now.After(t.ValidUntil)
}

// TimeRemaining returns the time left in the validity window, or zero when the
// token is used or expired.
func (t *AccessToken) TimeRemaining(now time.Time) time.Duration {
	if t.IsUsed || t.IsExpired(now) {
		return 0
	}
	return t.ValidUntil.Sub(now)
}
