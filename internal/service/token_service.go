package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/exam-access-service/internal/domain"
	"github.com/spec-kit/exam-access-service/internal/events"
	"github.com/spec-kit/exam-access-service/internal/observability"
	"github.com/spec-kit/exam-access-service/internal/repository"
	"github.com/spec-kit/exam-access-service/internal/token"
	apperrors "github.com/spec-kit/exam-access-service/pkg/util"
)

// Validity bounds for issued tokens.
const (
	MinValidMinutes = 1
	MaxValidMinutes = 1440
)

// DefaultGenerateRetries bounds regeneration attempts after a token-uniqueness
// collision. Collisions are effectively impossible at 192 bits of entropy; the
// retry exists for correctness, not because it is expected to fire.
const DefaultGenerateRetries = 5

// DefaultSweepBatchSize bounds a single sweep delete statement.
const DefaultSweepBatchSize = 1000

// ExamAccess is the data disclosed on successful validation.
type ExamAccess struct {
	Exam    *domain.Exam
	Student *domain.Student
}

// TokenStats aggregates an exam's token population for instructor listings.
type TokenStats struct {
	Total   int
	Used    int
	Expired int
	Active  int
}

// ExamTokenList bundles an exam with its tokens and statistics.
type ExamTokenList struct {
	Exam    *domain.Exam
	Tokens  []repository.TokenWithStudent
	Stats   TokenStats
	FetchAt time.Time
}

// TokenService orchestrates the access-token lifecycle: issuance with
// duplicate/regeneration policy, atomic validate-and-consume, administrative
// invalidation and expiry sweeping. All coordination is delegated to the
// store's row locks; the service holds no mutable state of its own.
type TokenService struct {
	tokens          repository.AccessTokenStore
	exams           repository.ExamRepository
	students        repository.StudentRepository
	dispatcher      events.Dispatcher
	logger          *zap.Logger
	metrics         *observability.Metrics
	generateRetries int
}

// TokenDependencies bundles collaborators for the token service.
type TokenDependencies struct {
	TokenStore      repository.AccessTokenStore
	ExamRepo        repository.ExamRepository
	StudentRepo     repository.StudentRepository
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	GenerateRetries int
}

// NewTokenService constructs the service.
func NewTokenService(deps TokenDependencies) *TokenService {
	retries := deps.GenerateRetries
	if retries <= 0 {
		retries = DefaultGenerateRetries
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{
		tokens:          deps.TokenStore,
		exams:           deps.ExamRepo,
		students:        deps.StudentRepo,
		dispatcher:      deps.Dispatcher,
		logger:          logger,
		metrics:         deps.Metrics,
		generateRetries: retries,
	}
}

// Issue generates a fresh access token for the (exam, student) pair. When a
// token already exists the call fails with CONFLICT unless regenerate is set,
// in which case the existing token is superseded (marked used without granting
// access) inside the same transaction.
func (s *TokenService) Issue(ctx context.Context, examID, studentID string, validMinutes int, regenerate bool) (*domain.AccessToken, error) {
	if validMinutes < MinValidMinutes || validMinutes > MaxValidMinutes {
		return nil, apperrors.NewInvalidInput("valid_minutes must be between 1 and 1440", map[string]any{
			"valid_minutes": validMinutes,
		})
	}

	// Both missing-exam and missing-student collapse to the same error so the
	// response never leaks which identifier was wrong.
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("token issuance for unknown exam", zap.String("exam_id", examID))
			return nil, apperrors.NewNotFound("exam or student", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("token issuance for unknown student", zap.String("student_id", studentID))
			return nil, apperrors.NewNotFound("exam or student", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	var (
		created     *domain.AccessToken
		regenerated bool
	)
	err = s.tokens.WithinTx(ctx, func(tx repository.AccessTokenTx) error {
		existing, err := tx.LockByPair(ctx, examID, studentID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if existing != nil {
			if !regenerate {
				s.logger.Info("duplicate token issuance rejected",
					zap.String("exam_id", examID),
					zap.String("student_id", studentID),
				)
				return apperrors.NewConflict("token already exists for this student and exam", nil)
			}
			if !existing.IsUsed {
				if err := tx.MarkUsed(ctx, existing.ID, time.Now()); err != nil {
					return err
				}
			}
			regenerated = true
		}

		now := time.Now()
		for attempt := 0; attempt < s.generateRetries; attempt++ {
			value, err := token.Generate(token.SizeDefault)
			if err != nil {
				return err
			}
			candidate := &domain.AccessToken{
				ExamID:     examID,
				StudentID:  studentID,
				Token:      value,
				ValidFrom:  now,
				ValidUntil: now.Add(time.Duration(validMinutes) * time.Minute),
			}
			err = tx.Insert(ctx, candidate)
			if errors.Is(err, repository.ErrDuplicateToken) {
				s.logger.Warn("token collision, regenerating", zap.Int("attempt", attempt+1))
				continue
			}
			if errors.Is(err, repository.ErrDuplicatePair) {
				// Two first-time issuances raced past the pair lock (FOR UPDATE
				// cannot lock an absent row); the constraint picks the winner.
				return apperrors.NewConflict("token already exists for this student and exam", nil)
			}
			if err != nil {
				return err
			}
			created = candidate
			return nil
		}
		return apperrors.NewInternalError(errors.New("exhausted token generation retries"))
	})
	if err != nil {
		return nil, normalize(err)
	}

	s.metrics.RecordTokenIssued()
	s.logger.Info("token issued",
		zap.String("exam_id", examID),
		zap.String("student_id", studentID),
		zap.String("exam_title", exam.Title),
		zap.Bool("regenerated", regenerated),
		zap.Time("valid_until", created.ValidUntil),
	)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventTokenIssued,
		ExamID: examID,
		Payload: events.TokenIssuedPayload{
			TokenID:     created.ID,
			StudentID:   studentID,
			ValidUntil:  created.ValidUntil,
			Regenerated: regenerated,
		},
	})
	return created, nil
}

// Validate checks a raw token string and consumes it atomically. Across any
// number of concurrent calls on the same token exactly one succeeds; the rest
// observe the terminal state the winner left behind.
func (s *TokenService) Validate(ctx context.Context, raw string) (*ExamAccess, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, apperrors.NewInvalidInput("token is required", nil)
	}

	var (
		consumed *domain.AccessToken
		exam     *domain.Exam
		student  *domain.Student
	)
	err := s.tokens.WithinTx(ctx, func(tx repository.AccessTokenTx) error {
		record, err := tx.LockByToken(ctx, trimmed)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewTokenInvalid()
			}
			return err
		}

		now := time.Now()
		switch record.Status(now) {
		case domain.TokenStatusUsed:
			return apperrors.NewTokenAlreadyUsed()
		case domain.TokenStatusExpired:
			return apperrors.NewTokenExpired()
		case domain.TokenStatusNotYetValid:
			return apperrors.NewTokenNotYetValid()
		}

		// Resolve the disclosed data before consuming: a registry failure must
		// roll the consumption back, not burn the token.
		if exam, err = s.exams.GetByID(ctx, record.ExamID); err != nil {
			return err
		}
		if student, err = s.students.GetByID(ctx, record.StudentID); err != nil {
			return err
		}

		if err := tx.MarkUsed(ctx, record.ID, now); err != nil {
			return err
		}
		record.IsUsed = true
		record.UsedAt = &now
		consumed = record
		return nil
	})
	if err != nil {
		err = normalize(err)
		s.recordRejection(ctx, trimmed, err)
		return nil, err
	}

	s.metrics.RecordTokenValidated("success")
	s.logger.Info("token validated",
		zap.String("token_prefix", tokenPrefix(trimmed)),
		zap.String("exam_id", exam.ID),
		zap.String("student_id", student.ID),
	)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventTokenValidated,
		ExamID: exam.ID,
		Payload: events.TokenValidatedPayload{
			TokenID:   consumed.ID,
			StudentID: student.ID,
		},
	})
	return &ExamAccess{Exam: exam, Student: student}, nil
}

// InvalidateOnFailedAttempt defensively consumes a live token whose value
// exactly matches a probe that failed validation. Exact match only; it never
// fires on prefixes or substrings, and its outcome never alters the error the
// probing caller already received.
func (s *TokenService) InvalidateOnFailedAttempt(ctx context.Context, raw string) bool {
	record, err := s.tokens.GetByToken(ctx, raw)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("defensive invalidation lookup failed", zap.Error(err))
		}
		return false
	}
	now := time.Now()
	if record.IsUsed || record.IsExpired(now) {
		return false
	}

	err = s.tokens.WithinTx(ctx, func(tx repository.AccessTokenTx) error {
		locked, err := tx.LockByToken(ctx, raw)
		if err != nil {
			return err
		}
		if locked.IsUsed || locked.IsExpired(time.Now()) {
			return repository.ErrNotFound
		}
		return tx.MarkUsed(ctx, locked.ID, time.Now())
	})
	if err != nil {
		return false
	}

	s.logger.Info("token invalidated after failed attempt",
		zap.String("token_prefix", tokenPrefix(raw)),
	)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventTokenInvalidated,
		ExamID: record.ExamID,
		Payload: events.TokenInvalidatedPayload{
			TokenID:   record.ID,
			StudentID: record.StudentID,
			Defensive: true,
		},
	})
	return true
}

// Invalidate administratively consumes a token without granting access. A
// second attempt against an already-used token reports the terminal status
// rather than silently succeeding twice.
func (s *TokenService) Invalidate(ctx context.Context, tokenID string) error {
	var record *domain.AccessToken
	err := s.tokens.WithinTx(ctx, func(tx repository.AccessTokenTx) error {
		locked, err := tx.LockByID(ctx, tokenID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("token", nil)
			}
			return err
		}
		if locked.IsUsed {
			return apperrors.NewInvalidInput("token is already used", nil)
		}
		if err := tx.MarkUsed(ctx, locked.ID, time.Now()); err != nil {
			return err
		}
		record = locked
		return nil
	})
	if err != nil {
		return normalize(err)
	}

	s.logger.Info("token invalidated",
		zap.String("token_id", record.ID),
		zap.String("token_prefix", tokenPrefix(record.Token)),
	)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventTokenInvalidated,
		ExamID: record.ExamID,
		Payload: events.TokenInvalidatedPayload{
			TokenID:   record.ID,
			StudentID: record.StudentID,
		},
	})
	return nil
}

// Sweep deletes tokens whose validity window closed more than olderThanDays
// ago, in bounded batches so no single transaction holds long locks. Safe to
// interleave with live Issue/Validate traffic.
func (s *TokenService) Sweep(ctx context.Context, olderThanDays, batchSize int) (int64, error) {
	if olderThanDays < 0 {
		return 0, apperrors.NewInvalidInput("older_than_days must not be negative", nil)
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}

	cutoff := time.Now()
	if olderThanDays > 0 {
		cutoff = cutoff.AddDate(0, 0, -olderThanDays)
	}

	var total int64
	for {
		deleted, err := s.tokens.DeleteExpiredBatch(ctx, cutoff, batchSize)
		if err != nil {
			return total, apperrors.NewInternalError(err)
		}
		total += deleted
		if deleted < int64(batchSize) {
			break
		}
	}

	s.metrics.RecordTokensSwept(total)
	s.logger.Info("expired tokens swept",
		zap.Int64("deleted", total),
		zap.Int("older_than_days", olderThanDays),
		zap.Int("batch_size", batchSize),
	)
	s.publishEvent(ctx, events.Event{
		Type: events.EventTokensSwept,
		Payload: events.TokensSweptPayload{
			Deleted:       total,
			OlderThanDays: olderThanDays,
		},
	})
	return total, nil
}

// CountExpired reports how many tokens a sweep with the given horizon would
// remove, for dry runs.
func (s *TokenService) CountExpired(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays < 0 {
		return 0, apperrors.NewInvalidInput("older_than_days must not be negative", nil)
	}
	cutoff := time.Now()
	if olderThanDays > 0 {
		cutoff = cutoff.AddDate(0, 0, -olderThanDays)
	}
	count, err := s.tokens.CountExpired(ctx, cutoff)
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	return count, nil
}

// ListExamTokens returns an exam's tokens with per-token status and aggregate
// statistics for the instructor surface.
func (s *TokenService) ListExamTokens(ctx context.Context, examID string) (*ExamTokenList, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("exam", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	tokens, err := s.tokens.ListByExam(ctx, examID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := time.Now()
	stats := TokenStats{Total: len(tokens)}
	for i := range tokens {
		switch tokens[i].Token.Status(now) {
		case domain.TokenStatusUsed:
			stats.Used++
		case domain.TokenStatusExpired:
			stats.Expired++
		case domain.TokenStatusValid:
			stats.Active++
		}
	}

	return &ExamTokenList{Exam: exam, Tokens: tokens, Stats: stats, FetchAt: now}, nil
}

func (s *TokenService) recordRejection(ctx context.Context, trimmed string, err error) {
	domainErr := apperrors.ToDomainError(err)
	s.metrics.RecordTokenValidated(domainErr.Code)
	s.logger.Warn("token validation failed",
		zap.String("token_prefix", tokenPrefix(trimmed)),
		zap.String("reason", domainErr.Code),
	)
	s.publishEvent(ctx, events.Event{
		Type: events.EventTokenRejected,
		Payload: events.TokenRejectedPayload{
			TokenPrefix: tokenPrefix(trimmed),
			Reason:      domainErr.Code,
			Status:      rejectionStatus(domainErr.Code),
		},
	})
}

// rejectionStatus maps a rejection code to the token state that produced it;
// empty for rejections with no underlying record (invalid or malformed input).
func rejectionStatus(code string) domain.TokenStatus {
	switch code {
	case "TOKEN_ALREADY_USED":
		return domain.TokenStatusUsed
	case "TOKEN_EXPIRED":
		return domain.TokenStatusExpired
	case "TOKEN_NOT_YET_VALID":
		return domain.TokenStatusNotYetValid
	default:
		return ""
	}
}

func (s *TokenService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// normalize keeps expected DomainError outcomes intact and wraps anything else
// so store internals never leak past the service boundary.
func normalize(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewInternalError(err)
}

func tokenPrefix(value string) string {
	if len(value) <= 8 {
		return value
	}
	return value[:8] + "..."
}
