package events

import (
	"time"

	"github.com/spec-kit/exam-access-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTokenIssued      EventType = "token_issued"
	EventTokenValidated   EventType = "token_validated"
	EventTokenRejected    EventType = "token_rejected"
	EventTokenInvalidated EventType = "token_invalidated"
	EventTokensSwept      EventType = "tokens_swept"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ExamID    string      `json:"exam_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TokenIssuedPayload payload.
type TokenIssuedPayload struct {
	TokenID     string    `json:"token_id"`
	StudentID   string    `json:"student_id"`
	ValidUntil  time.Time `json:"valid_until"`
	Regenerated bool      `json:"regenerated"`
}

// TokenValidatedPayload payload.
type TokenValidatedPayload struct {
	TokenID   string `json:"token_id"`
	StudentID string `json:"student_id"`
}

// TokenRejectedPayload payload.
type TokenRejectedPayload struct {
	TokenPrefix string             `json:"token_prefix"`
	Reason      string             `json:"reason"`
	Status      domain.TokenStatus `json:"status,omitempty"`
}

// TokenInvalidatedPayload payload.
type TokenInvalidatedPayload struct {
	TokenID   string `json:"token_id"`
	StudentID string `json:"student_id"`
	Defensive bool   `json:"defensive"`
}

// TokensSweptPayload payload.
type TokensSweptPayload struct {
	Deleted       int64 `json:"deleted"`
	OlderThanDays int   `json:"older_than_days"`
}
