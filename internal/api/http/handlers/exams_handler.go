package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exam-access-service/internal/api/dto"
	"github.com/spec-kit/exam-access-service/internal/domain"
	"github.com/spec-kit/exam-access-service/internal/service"
	apperrors "github.com/spec-kit/exam-access-service/pkg/util"
)

// ExamsHandler exposes the administrative exam registry endpoints.
type ExamsHandler struct {
	exams *service.ExamService
}

// NewExamsHandler constructs handler.
func NewExamsHandler(examService *service.ExamService) *ExamsHandler {
	return &ExamsHandler{exams: examService}
}

// Create handles POST /exams.
func (h *ExamsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateExamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidInput("invalid payload", nil)
	}

	exam, err := h.exams.CreateExam(c.UserContext(), req.Title, req.StartTime, req.EndTime)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(examDetail(exam))
}

// Get handles GET /exams/:exam_id.
func (h *ExamsHandler) Get(c *fiber.Ctx) error {
	exam, err := h.exams.GetExam(c.UserContext(), c.Params("exam_id"))
	if err != nil {
		return err
	}
	return c.JSON(examDetail(exam))
}

// List handles GET /exams.
func (h *ExamsHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	exams, err := h.exams.ListExams(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}

	result := make([]dto.ExamDetail, 0, len(exams))
	for i := range exams {
		result = append(result, examDetail(&exams[i]))
	}
	return c.JSON(fiber.Map{"exams": result})
}

func examDetail(exam *domain.Exam) dto.ExamDetail {
	return dto.ExamDetail{
		ID:        exam.ID,
		Title:     exam.Title,
		StartTime: exam.StartTime,
		EndTime:   exam.EndTime,
		CreatedAt: exam.CreatedAt,
	}
}
