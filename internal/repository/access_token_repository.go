package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/exam-access-service/internal/domain"
)

// Sentinel errors surfaced by store implementations.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateToken = errors.New("token value already exists")
	ErrDuplicatePair  = errors.New("token already exists for exam and student")
)

const (
	tokenUniqueConstraint = "exam_access_tokens_token_key"
	pairUniqueConstraint  = "exam_access_tokens_exam_student_key"
	pgUniqueViolation     = "23505"
)

// TokenWithStudent pairs a token row with its student for instructor listings.
type TokenWithStudent struct {
	Token   domain.AccessToken
	Student domain.Student
}

// AccessTokenTx exposes the row-locked operations available inside one store
// transaction. Lock methods take a FOR UPDATE row lock so that concurrent
// read-modify-write sequences on the same credential serialize.
type AccessTokenTx interface {
	LockByPair(ctx context.Context, examID, studentID string) (*domain.AccessToken, error)
	LockByToken(ctx context.Context, token string) (*domain.AccessToken, error)
	LockByID(ctx context.Context, id string) (*domain.AccessToken, error)
	Insert(ctx context.Context, token *domain.AccessToken) error
	MarkUsed(ctx context.Context, id string, usedAt time.Time) error
}

// AccessTokenStore is the transactional credential store contract.
type AccessTokenStore interface {
	WithinTx(ctx context.Context, fn func(tx AccessTokenTx) error) error
	GetByToken(ctx context.Context, token string) (*domain.AccessToken, error)
	ListByExam(ctx context.Context, examID string) ([]TokenWithStudent, error)
	CountExpired(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExpiredBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type accessTokenStore struct {
	pool *pgxpool.Pool
}

// NewAccessTokenStore constructs the pgx-backed store.
func NewAccessTokenStore(pool *pgxpool.Pool) AccessTokenStore {
	return &accessTokenStore{pool: pool}
}

const tokenColumns = `id, exam_id, student_id, token, is_used, valid_from, valid_until, created_at, used_at`

// WithinTx runs fn inside a single transaction, committing on nil and rolling
// back otherwise.
func (s *accessTokenStore) WithinTx(ctx context.Context, fn func(tx AccessTokenTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&accessTokenTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *accessTokenStore) GetByToken(ctx context.Context, tokenStr string) (*domain.AccessToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM exam_access_tokens WHERE token=$1`
	return scanToken(s.pool.QueryRow(ctx, query, tokenStr))
}

func (s *accessTokenStore) ListByExam(ctx context.Context, examID string) ([]TokenWithStudent, error) {
	const query = `
        SELECT t.id, t.exam_id, t.student_id, t.token, t.is_used, t.valid_from, t.valid_until, t.created_at, t.used_at,
               s.id, s.username, s.first_name, s.last_name, s.email, s.created_at
        FROM exam_access_tokens t
        JOIN students s ON s.id = t.student_id
        WHERE t.exam_id=$1
        ORDER BY t.created_at DESC`
	rows, err := s.pool.Query(ctx, query, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TokenWithStudent
	for rows.Next() {
		var entry TokenWithStudent
		if err := rows.Scan(
			&entry.Token.ID,
			&entry.Token.ExamID,
			&entry.Token.StudentID,
			&entry.Token.Token,
			&entry.Token.IsUsed,
			&entry.Token.ValidFrom,
			&entry.Token.ValidUntil,
			&entry.Token.CreatedAt,
			&entry.Token.UsedAt,
			&entry.Student.ID,
			&entry.Student.Username,
			&entry.Student.FirstName,
			&entry.Student.LastName,
			&entry.Student.Email,
			&entry.Student.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (s *accessTokenStore) CountExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM exam_access_tokens WHERE valid_until < $1`
	var count int64
	if err := s.pool.QueryRow(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteExpiredBatch removes at most limit expired rows in one statement so a
// sweep never holds locks over the whole table.
func (s *accessTokenStore) DeleteExpiredBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	const query = `
        DELETE FROM exam_access_tokens
        WHERE id IN (
            SELECT id FROM exam_access_tokens
            WHERE valid_until < $1
            ORDER BY valid_until
            LIMIT $2
        )`
	cmd, err := s.pool.Exec(ctx, query, cutoff, limit)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

type accessTokenTx struct {
	tx pgx.Tx
}

// LockByPair picks the live token for the pair when one exists, otherwise the
// most recently superseded one.
func (t *accessTokenTx) LockByPair(ctx context.Context, examID, studentID string) (*domain.AccessToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM exam_access_tokens
        WHERE exam_id=$1 AND student_id=$2
        ORDER BY is_used, created_at DESC
        LIMIT 1
        FOR UPDATE`
	return scanToken(t.tx.QueryRow(ctx, query, examID, studentID))
}

func (t *accessTokenTx) LockByToken(ctx context.Context, tokenStr string) (*domain.AccessToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM exam_access_tokens WHERE token=$1 FOR UPDATE`
	return scanToken(t.tx.QueryRow(ctx, query, tokenStr))
}

func (t *accessTokenTx) LockByID(ctx context.Context, id string) (*domain.AccessToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM exam_access_tokens WHERE id=$1 FOR UPDATE`
	return scanToken(t.tx.QueryRow(ctx, query, id))
}

func (t *accessTokenTx) Insert(ctx context.Context, token *domain.AccessToken) error {
	const query = `
        INSERT INTO exam_access_tokens (exam_id, student_id, token, is_used, valid_from, valid_until)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	err := t.tx.QueryRow(ctx, query,
		token.ExamID,
		token.StudentID,
		token.Token,
		token.IsUsed,
		token.ValidFrom,
		token.ValidUntil,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func (t *accessTokenTx) MarkUsed(ctx context.Context, id string, usedAt time.Time) error {
	const query = `UPDATE exam_access_tokens SET is_used=TRUE, used_at=$1 WHERE id=$2`
	cmd, err := t.tx.Exec(ctx, query, usedAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanToken(row pgx.Row) (*domain.AccessToken, error) {
	var token domain.AccessToken
	if err := row.Scan(
		&token.ID,
		&token.ExamID,
		&token.StudentID,
		&token.Token,
		&token.IsUsed,
		&token.ValidFrom,
		&token.ValidUntil,
		&token.CreatedAt,
		&token.UsedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case tokenUniqueConstraint:
			return ErrDuplicateToken
		case pairUniqueConstraint:
			return ErrDuplicatePair
		}
	}
	return err
}
