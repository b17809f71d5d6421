package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exam-access-service/internal/api/dto"
	"github.com/spec-kit/exam-access-service/internal/guard"
	"github.com/spec-kit/exam-access-service/internal/service"
	apperrors "github.com/spec-kit/exam-access-service/pkg/util"
)

// TokensHandler exposes the token lifecycle endpoints.
type TokensHandler struct {
	tokens   *service.TokenService
	throttle *guard.ValidationThrottle
}

// NewTokensHandler constructs handler.
func NewTokensHandler(tokenService *service.TokenService, throttle *guard.ValidationThrottle) *TokensHandler {
	return &TokensHandler{tokens: tokenService, throttle: throttle}
}

// Issue handles POST /exams/:exam_id/tokens.
func (h *TokensHandler) Issue(c *fiber.Ctx) error {
	examID := c.Params("exam_id")
	var req dto.IssueTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidInput("invalid payload", nil)
	}
	if req.StudentID == "" {
		return apperrors.NewInvalidInput("student_id is required", nil)
	}

	created, err := h.tokens.Issue(c.UserContext(), examID, req.StudentID, req.ValidMinutes, req.Regenerate)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.TokenIssuedResponse{
		Token:      created.Token,
		ValidUntil: created.ValidUntil,
		Message:    "Token generated successfully",
	})
}

// Validate handles GET /exams/access/:token. Anonymous, throttled, no-cache.
func (h *TokensHandler) Validate(c *fiber.Ctx) error {
	c.Set("Cache-Control", "no-store")

	if !h.throttle.Allow(c.UserContext(), c.IP()) {
		return apperrors.NewDomainError("THROTTLED", "too many validation attempts", http.StatusTooManyRequests, nil)
	}

	raw := c.Params("token")
	access, err := h.tokens.Validate(c.UserContext(), raw)
	if err != nil {
		if apperrors.ToDomainError(err).Code == "TOKEN_INVALID" {
			// Best-effort hardening against probing; the caller still gets the
			// original error.
			h.tokens.InvalidateOnFailedAttempt(c.UserContext(), raw)
		}
		return err
	}

	return c.JSON(dto.ExamAccessResponse{
		Exam: dto.ExamSummary{
			Title:     access.Exam.Title,
			StartTime: access.Exam.StartTime,
			EndTime:   access.Exam.EndTime,
		},
		Student: dto.StudentSummary{
			Name:  access.Student.DisplayName(),
			Email: access.Student.Email,
		},
	})
}

// List handles GET /exams/:exam_id/tokens.
func (h *TokensHandler) List(c *fiber.Ctx) error {
	listing, err := h.tokens.ListExamTokens(c.UserContext(), c.Params("exam_id"))
	if err != nil {
		return err
	}

	entries := make([]dto.TokenListEntry, 0, len(listing.Tokens))
	for _, item := range listing.Tokens {
		entries = append(entries, dto.TokenListEntry{
			ID:           item.Token.ID,
			Token:        maskToken(item.Token.Token),
			StudentName:  item.Student.DisplayName(),
			StudentEmail: item.Student.Email,
			IsUsed:       item.Token.IsUsed,
			Status:       string(item.Token.Status(listing.FetchAt)),
			ValidFrom:    item.Token.ValidFrom,
			ValidUntil:   item.Token.ValidUntil,
			CreatedAt:    item.Token.CreatedAt,
			UsedAt:       item.Token.UsedAt,
		})
	}

	return c.JSON(dto.ExamTokenListResponse{
		Exam: dto.ExamDetail{
			ID:        listing.Exam.ID,
			Title:     listing.Exam.Title,
			StartTime: listing.Exam.StartTime,
			EndTime:   listing.Exam.EndTime,
			CreatedAt: listing.Exam.CreatedAt,
		},
		Tokens: entries,
		Statistics: dto.TokenListStatistics{
			TotalCount:   listing.Stats.Total,
			UsedCount:    listing.Stats.Used,
			ExpiredCount: listing.Stats.Expired,
			ActiveCount:  listing.Stats.Active,
		},
	})
}

// Invalidate handles DELETE /tokens/:token_id.
func (h *TokensHandler) Invalidate(c *fiber.Ctx) error {
	if err := h.tokens.Invalidate(c.UserContext(), c.Params("token_id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Token invalidated successfully"})
}

// Sweep handles POST /tokens/cleanup.
func (h *TokensHandler) Sweep(c *fiber.Ctx) error {
	var req dto.SweepRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewInvalidInput("invalid payload", nil)
		}
	}

	deleted, err := h.tokens.Sweep(c.UserContext(), req.OlderThanDays, req.BatchSize)
	if err != nil {
		return err
	}
	return c.JSON(dto.SweepResponse{Deleted: deleted})
}

func maskToken(value string) string {
	if len(value) <= 8 {
		return value
	}
	return value[:8] + "..."
}
