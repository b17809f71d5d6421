package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/exam-access-service/internal/domain"
	"github.com/spec-kit/exam-access-service/internal/repository"
	apperrors "github.com/spec-kit/exam-access-service/pkg/util"
)

// ExamService covers the administrative registry surface: creating and listing
// exams and resolving students. The token lifecycle only reads through it.
type ExamService struct {
	exams    repository.ExamRepository
	students repository.StudentRepository
	logger   *zap.Logger
}

// NewExamService builds the service.
func NewExamService(exams repository.ExamRepository, students repository.StudentRepository, logger *zap.Logger) *ExamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{exams: exams, students: students, logger: logger}
}

// CreateExam validates the time window and persists a new exam.
func (s *ExamService) CreateExam(ctx context.Context, title string, start, end time.Time) (*domain.Exam, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.NewInvalidInput("title is required", nil)
	}

	exam := &domain.Exam{
		Title:     title,
		StartTime: start,
		EndTime:   end,
	}
	if err := exam.Validate(); err != nil {
		return nil, apperrors.NewInvalidInput(err.Error(), nil)
	}

	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("exam created",
		zap.String("exam_id", exam.ID),
		zap.String("title", exam.Title),
	)
	return exam, nil
}

// GetExam fetches one exam.
func (s *ExamService) GetExam(ctx context.Context, id string) (*domain.Exam, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("exam", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return exam, nil
}

// ListExams returns a page of exams, newest first.
func (s *ExamService) ListExams(ctx context.Context, limit, offset int) ([]domain.Exam, error) {
	exams, err := s.exams.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return exams, nil
}

// GetStudent resolves one student record.
func (s *ExamService) GetStudent(ctx context.Context, id string) (*domain.Student, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("student", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return student, nil
}
