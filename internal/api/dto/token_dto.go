package dto

import "time"

// IssueTokenRequest payload for POST /exams/:exam_id/tokens.
type IssueTokenRequest struct {
	StudentID    string `json:"student_id"`
	ValidMinutes int    `json:"valid_minutes"`
	Regenerate   bool   `json:"regenerate"`
}

// TokenIssuedResponse returns the raw token. This is the only moment the raw
// value is disclosed.
type TokenIssuedResponse struct {
	Token      string    `json:"token"`
	ValidUntil time.Time `json:"valid_until"`
	Message    string    `json:"message"`
}

// ExamSummary is the exam data disclosed on successful validation.
type ExamSummary struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// StudentSummary is the student data disclosed on successful validation.
type StudentSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ExamAccessResponse is the successful validation body.
type ExamAccessResponse struct {
	Exam    ExamSummary    `json:"exam"`
	Student StudentSummary `json:"student"`
}

// TokenListEntry is one token row in the instructor listing. The token value
// is masked to a prefix.
type TokenListEntry struct {
	ID           string     `json:"id"`
	Token        string     `json:"token"`
	StudentName  string     `json:"student_name"`
	StudentEmail string     `json:"student_email"`
	IsUsed       bool       `json:"is_used"`
	Status       string     `json:"status"`
	ValidFrom    time.Time  `json:"valid_from"`
	ValidUntil   time.Time  `json:"valid_until"`
	CreatedAt    time.Time  `json:"created_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
}

// TokenListStatistics aggregates the listing.
type TokenListStatistics struct {
	TotalCount   int `json:"total_count"`
	UsedCount    int `json:"used_count"`
	ExpiredCount int `json:"expired_count"`
	ActiveCount  int `json:"active_count"`
}

// ExamTokenListResponse is the instructor listing body.
type ExamTokenListResponse struct {
	Exam       ExamDetail          `json:"exam"`
	Tokens     []TokenListEntry    `json:"tokens"`
	Statistics TokenListStatistics `json:"statistics"`
}

// SweepRequest payload for POST /tokens/cleanup.
type SweepRequest struct {
	OlderThanDays int `json:"older_than_days"`
	BatchSize     int `json:"batch_size"`
}

// SweepResponse reports the deletion count.
type SweepResponse struct {
	Deleted int64 `json:"deleted"`
}
