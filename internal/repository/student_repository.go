package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/exam-access-service/internal/domain"
)

// StudentRepository encapsulates student registry lookups. The token lifecycle
// never writes students; Create exists for seeding fixtures.
type StudentRepository interface {
	Create(ctx context.Context, student *domain.Student) error
	GetByID(ctx context.Context, id string) (*domain.Student, error)
	GetByUsername(ctx context.Context, username string) (*domain.Student, error)
}

type studentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository instantiates repository.
func NewStudentRepository(pool *pgxpool.Pool) StudentRepository {
	return &studentRepository{pool: pool}
}

func (r *studentRepository) Create(ctx context.Context, student *domain.Student) error {
	const query = `
        INSERT INTO students (username, first_name, last_name, email, password_hash)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		student.Username,
		student.FirstName,
		student.LastName,
		student.Email,
		student.PasswordHash,
	).Scan(&student.ID, &student.CreatedAt)
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (*domain.Student, error) {
	const query = `
        SELECT id, username, first_name, last_name, email, password_hash, created_at
        FROM students WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *studentRepository) GetByUsername(ctx context.Context, username string) (*domain.Student, error) {
	const query = `
        SELECT id, username, first_name, last_name, email, password_hash, created_at
        FROM students WHERE username=$1`
	return r.fetchSingle(ctx, query, username)
}

func (r *studentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Student, error) {
	var student domain.Student
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&student.ID,
		&student.Username,
		&student.FirstName,
		&student.LastName,
		&student.Email,
		&student.PasswordHash,
		&student.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &student, nil
}
