package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/exam-access-service/internal/domain"
)

// ExamRepository encapsulates exam persistence. The token lifecycle only reads
// exams; writes come from the administrative surface.
type ExamRepository interface {
	Create(ctx context.Context, exam *domain.Exam) error
	GetByID(ctx context.Context, id string) (*domain.Exam, error)
	List(ctx context.Context, limit, offset int) ([]domain.Exam, error)
}

type examRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository instantiates repository.
func NewExamRepository(pool *pgxpool.Pool) ExamRepository {
	return &examRepository{pool: pool}
}

func (r *examRepository) Create(ctx context.Context, exam *domain.Exam) error {
	const query = `
        INSERT INTO exams (title, start_time, end_time)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		exam.Title,
		exam.StartTime,
		exam.EndTime,
	).Scan(&exam.ID, &exam.CreatedAt, &exam.UpdatedAt)
}

func (r *examRepository) GetByID(ctx context.Context, id string) (*domain.Exam, error) {
	const query = `
        SELECT id, title, start_time, end_time, created_at, updated_at
        FROM exams WHERE id=$1`
	var exam domain.Exam
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&exam.ID,
		&exam.Title,
		&exam.StartTime,
		&exam.EndTime,
		&exam.CreatedAt,
		&exam.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &exam, nil
}

func (r *examRepository) List(ctx context.Context, limit, offset int) ([]domain.Exam, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, title, start_time, end_time, created_at, updated_at
        FROM exams ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Exam
	for rows.Next() {
		var exam domain.Exam
		if err := rows.Scan(
			&exam.ID,
			&exam.Title,
			&exam.StartTime,
			&exam.EndTime,
			&exam.CreatedAt,
			&exam.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, exam)
	}
	return result, rows.Err()
}
