package domain

import (
	"strings"
	"time"
)

// Student is a read-only identity record owned by the user registry.
type Student struct {
	ID           string
	Username     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// DisplayName joins first and last name, falling back to the username when both
// are empty.
func (s *Student) DisplayName() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		return s.Username
	}
	return name
}
