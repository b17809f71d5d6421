package domain

import (
	"errors"
	"time"
)

// ErrInvalidWindow signals a validity window whose end does not follow its start.
var ErrInvalidWindow = errors.New("end time must be after start time")

// Exam is the time-boxed resource that access tokens gate entry to.
type Exam struct {
	ID        string
	Title     string
	StartTime time.Time
	EndTime   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate enforces the window invariant before any write.
func (e *Exam) Validate() error {
	if !e.EndTime.After(e.StartTime) {
		return ErrInvalidWindow
	}
	return nil
}

// Duration returns the scheduled length of the exam.
func (e *Exam) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// IsActive reports whether the exam is running at the given instant.
func (e *Exam) IsActive(now time.Time) bool {
	return !now.Before(e.StartTime) && !now.After(e.EndTime)
}
