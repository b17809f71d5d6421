package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/exam-access-service/internal/domain"
	"github.com/spec-kit/exam-access-service/internal/events"
	"github.com/spec-kit/exam-access-service/internal/repository"
	apperrors "github.com/spec-kit/exam-access-service/pkg/util"
)

// fakeTokenStore is an in-memory AccessTokenStore whose WithinTx serializes
// callers behind one mutex, mirroring the row-lock discipline of the real
// store, and rolls mutations back when the callback fails.
type fakeTokenStore struct {
	mu       sync.Mutex
	tokens   map[string]*domain.AccessToken
	students map[string]*domain.Student
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		tokens:   make(map[string]*domain.AccessToken),
		students: make(map[string]*domain.Student),
	}
}

func (s *fakeTokenStore) WithinTx(ctx context.Context, fn func(tx repository.AccessTokenTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]*domain.AccessToken, len(s.tokens))
	for id, tok := range s.tokens {
		cp := *tok
		snapshot[id] = &cp
	}

	if err := fn(&fakeTokenTx{store: s}); err != nil {
		s.tokens = snapshot
		return err
	}
	return nil
}

func (s *fakeTokenStore) GetByToken(ctx context.Context, value string) (*domain.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByToken(value)
}

func (s *fakeTokenStore) ListByExam(ctx context.Context, examID string) ([]repository.TokenWithStudent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []repository.TokenWithStudent
	for _, tok := range s.tokens {
		if tok.ExamID != examID {
			continue
		}
		entry := repository.TokenWithStudent{Token: *tok}
		if student, ok := s.students[tok.StudentID]; ok {
			entry.Student = *student
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *fakeTokenStore) CountExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, tok := range s.tokens {
		if tok.ValidUntil.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *fakeTokenStore) DeleteExpiredBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, tok := range s.tokens {
		if deleted >= int64(limit) {
			break
		}
		if tok.ValidUntil.Before(cutoff) {
			delete(s.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeTokenStore) findByToken(value string) (*domain.AccessToken, error) {
	for _, tok := range s.tokens {
		if tok.Token == value {
			cp := *tok
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeTokenTx struct {
	store *fakeTokenStore
}

func (t *fakeTokenTx) LockByPair(ctx context.Context, examID, studentID string) (*domain.AccessToken, error) {
	var latest *domain.AccessToken
	for _, tok := range t.store.tokens {
		if tok.ExamID != examID || tok.StudentID != studentID {
			continue
		}
		if !tok.IsUsed {
			cp := *tok
			return &cp, nil
		}
		if latest == nil || tok.CreatedAt.After(latest.CreatedAt) {
			latest = tok
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (t *fakeTokenTx) LockByToken(ctx context.Context, value string) (*domain.AccessToken, error) {
	return t.store.findByToken(value)
}

func (t *fakeTokenTx) LockByID(ctx context.Context, id string) (*domain.AccessToken, error) {
	tok, ok := t.store.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

func (t *fakeTokenTx) Insert(ctx context.Context, token *domain.AccessToken) error {
	for _, existing := range t.store.tokens {
		if existing.Token == token.Token {
			return repository.ErrDuplicateToken
		}
		if existing.ExamID == token.ExamID && existing.StudentID == token.StudentID && !existing.IsUsed {
			return repository.ErrDuplicatePair
		}
	}
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	cp := *token
	t.store.tokens[token.ID] = &cp
	return nil
}

func (t *fakeTokenTx) MarkUsed(ctx context.Context, id string, usedAt time.Time) error {
	tok, ok := t.store.tokens[id]
	if !ok {
		return repository.ErrNotFound
	}
	tok.IsUsed = true
	tok.UsedAt = &usedAt
	return nil
}

type fakeExamRepo struct {
	mu    sync.Mutex
	exams map[string]*domain.Exam
}

func (r *fakeExamRepo) Create(ctx context.Context, exam *domain.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	exam.ID = uuid.NewString()
	exam.CreatedAt = time.Now()
	cp := *exam
	r.exams[exam.ID] = &cp
	return nil
}

func (r *fakeExamRepo) GetByID(ctx context.Context, id string) (*domain.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exam, ok := r.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *exam
	return &cp, nil
}

func (r *fakeExamRepo) List(ctx context.Context, limit, offset int) ([]domain.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Exam
	for _, exam := range r.exams {
		result = append(result, *exam)
	}
	return result, nil
}

type fakeStudentRepo struct {
	store *fakeTokenStore
}

func (r *fakeStudentRepo) Create(ctx context.Context, student *domain.Student) error {
	student.ID = uuid.NewString()
	student.CreatedAt = time.Now()
	cp := *student
	r.store.students[student.ID] = &cp
	return nil
}

func (r *fakeStudentRepo) GetByID(ctx context.Context, id string) (*domain.Student, error) {
	student, ok := r.store.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *student
	return &cp, nil
}

func (r *fakeStudentRepo) GetByUsername(ctx context.Context, username string) (*domain.Student, error) {
	for _, student := range r.store.students {
		if student.Username == username {
			cp := *student
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) typesSeen() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		seen = append(seen, e.Type)
	}
	return seen
}

func (d *recordingDispatcher) lastRejected() (events.TokenRejectedPayload, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.events) - 1; i >= 0; i-- {
		if d.events[i].Type == events.EventTokenRejected {
			payload, ok := d.events[i].Payload.(events.TokenRejectedPayload)
			return payload, ok
		}
	}
	return events.TokenRejectedPayload{}, false
}

// flakyExamRepo fails lookups a fixed number of times before delegating.
type flakyExamRepo struct {
	repository.ExamRepository
	mu       sync.Mutex
	failures int
}

func (r *flakyExamRepo) GetByID(ctx context.Context, id string) (*domain.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return nil, errors.New("registry unavailable")
	}
	return r.ExamRepository.GetByID(ctx, id)
}

type fixture struct {
	svc        *TokenService
	store      *fakeTokenStore
	exams      *fakeExamRepo
	students   *fakeStudentRepo
	dispatcher *recordingDispatcher
	exam       *domain.Exam
	student    *domain.Student
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newFakeTokenStore()
	exams := &fakeExamRepo{exams: make(map[string]*domain.Exam)}
	students := &fakeStudentRepo{store: store}
	dispatcher := &recordingDispatcher{}

	exam := &domain.Exam{
		Title:     "Distributed Systems",
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	}
	require.NoError(t, exams.Create(context.Background(), exam))

	student := &domain.Student{
		Username:  "alice_student",
		FirstName: "Alice",
		LastName:  "Johnson",
		Email:     "alice@example.com",
	}
	require.NoError(t, students.Create(context.Background(), student))

	svc := NewTokenService(TokenDependencies{
		TokenStore:  store,
		ExamRepo:    exams,
		StudentRepo: students,
		Dispatcher:  dispatcher,
	})
	return &fixture{
		svc:        svc,
		store:      store,
		exams:      exams,
		students:   students,
		dispatcher: dispatcher,
		exam:       exam,
		student:    student,
	}
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err).Code
}

func TestIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a token with the requested window", func(t *testing.T) {
		f := newFixture(t)
		before := time.Now()

		created, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		require.NotEmpty(t, created.Token)
		require.LessOrEqual(t, len(created.Token), 36)
		require.False(t, created.IsUsed)
		require.WithinDuration(t, before.Add(10*time.Minute), created.ValidUntil, 5*time.Second)
		require.Contains(t, f.dispatcher.typesSeen(), events.EventTokenIssued)
	})

	t.Run("rejects out-of-range validity", func(t *testing.T) {
		f := newFixture(t)
		for _, minutes := range []int{0, -5, 1441} {
			_, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, minutes, false)
			require.Equal(t, "INVALID_INPUT", errCode(t, err))
		}
	})

	t.Run("collapses unknown exam and unknown student into one error", func(t *testing.T) {
		f := newFixture(t)

		_, errExam := f.svc.Issue(ctx, uuid.NewString(), f.student.ID, 10, false)
		_, errStudent := f.svc.Issue(ctx, f.exam.ID, uuid.NewString(), 10, false)

		require.Equal(t, "NOT_FOUND", errCode(t, errExam))
		require.Equal(t, "NOT_FOUND", errCode(t, errStudent))
		require.Equal(t, errExam.Error(), errStudent.Error())
	})

	t.Run("second issue without regenerate conflicts", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)

		_, err = f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.Equal(t, "CONFLICT", errCode(t, err))
	})

	t.Run("regenerate supersedes the previous token", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)

		second, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, true)
		require.NoError(t, err)
		require.NotEqual(t, first.Token, second.Token)

		_, err = f.svc.Validate(ctx, first.Token)
		require.Equal(t, "TOKEN_ALREADY_USED", errCode(t, err))

		access, err := f.svc.Validate(ctx, second.Token)
		require.NoError(t, err)
		require.Equal(t, f.exam.Title, access.Exam.Title)
	})

	t.Run("concurrent first issuance admits exactly one", func(t *testing.T) {
		f := newFixture(t)

		const workers = 16
		var wg sync.WaitGroup
		outcomes := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
				outcomes <- err
			}()
		}
		wg.Wait()
		close(outcomes)

		var successes, conflicts int
		for err := range outcomes {
			if err == nil {
				successes++
				continue
			}
			require.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
			conflicts++
		}
		require.Equal(t, 1, successes)
		require.Equal(t, workers-1, conflicts)
	})
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip returns exam and student data", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)

		access, err := f.svc.Validate(ctx, created.Token)
		require.NoError(t, err)
		require.Equal(t, f.exam.Title, access.Exam.Title)
		require.True(t, f.exam.StartTime.Equal(access.Exam.StartTime))
		require.True(t, f.exam.EndTime.Equal(access.Exam.EndTime))
		require.Equal(t, "Alice Johnson", access.Student.DisplayName())
		require.Equal(t, f.student.Email, access.Student.Email)

		_, err = f.svc.Validate(ctx, created.Token)
		require.Equal(t, "TOKEN_ALREADY_USED", errCode(t, err))
	})

	t.Run("display name falls back to username", func(t *testing.T) {
		f := newFixture(t)
		anon := &domain.Student{Username: "ghost_student", Email: "ghost@example.com"}
		require.NoError(t, f.students.Create(ctx, anon))

		created, err := f.svc.Issue(ctx, f.exam.ID, anon.ID, 10, false)
		require.NoError(t, err)

		access, err := f.svc.Validate(ctx, created.Token)
		require.NoError(t, err)
		require.Equal(t, "ghost_student", access.Student.DisplayName())
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)

		_, err = f.svc.Validate(ctx, "  "+created.Token+"\n")
		require.NoError(t, err)
	})

	t.Run("empty and garbage tokens", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Validate(ctx, "   ")
		require.Equal(t, "INVALID_INPUT", errCode(t, err))

		_, err = f.svc.Validate(ctx, "garbage")
		require.Equal(t, "TOKEN_INVALID", errCode(t, err))
		require.Contains(t, f.dispatcher.typesSeen(), events.EventTokenRejected)
	})

	t.Run("expired window wins over unused flag", func(t *testing.T) {
		f := newFixture(t)

		var value string
		require.NoError(t, f.store.WithinTx(ctx, func(tx repository.AccessTokenTx) error {
			tok := &domain.AccessToken{
				ExamID:     f.exam.ID,
				StudentID:  f.student.ID,
				Token:      "expired-token-value",
				ValidFrom:  time.Now().Add(-2 * time.Hour),
				ValidUntil: time.Now().Add(-time.Hour),
			}
			value = tok.Token
			return tx.Insert(ctx, tok)
		}))

		_, err := f.svc.Validate(ctx, value)
		require.Equal(t, "TOKEN_EXPIRED", errCode(t, err))
	})

	t.Run("future window is not yet valid", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.store.WithinTx(ctx, func(tx repository.AccessTokenTx) error {
			return tx.Insert(ctx, &domain.AccessToken{
				ExamID:     f.exam.ID,
				StudentID:  f.student.ID,
				Token:      "future-token-value",
				ValidFrom:  time.Now().Add(time.Hour),
				ValidUntil: time.Now().Add(2 * time.Hour),
			})
		}))

		_, err := f.svc.Validate(ctx, "future-token-value")
		require.Equal(t, "TOKEN_NOT_YET_VALID", errCode(t, err))
	})

	t.Run("registry failure rolls back consumption", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)

		svc := NewTokenService(TokenDependencies{
			TokenStore:  f.store,
			ExamRepo:    &flakyExamRepo{ExamRepository: f.exams, failures: 1},
			StudentRepo: f.students,
		})

		_, err = svc.Validate(ctx, created.Token)
		require.Equal(t, "INTERNAL_ERROR", errCode(t, err))

		// The token must still be live once the registry recovers.
		access, err := svc.Validate(ctx, created.Token)
		require.NoError(t, err)
		require.Equal(t, f.exam.Title, access.Exam.Title)
	})

	t.Run("rejection events carry the token state", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)
		_, err = f.svc.Validate(ctx, created.Token)
		require.NoError(t, err)
		_, err = f.svc.Validate(ctx, created.Token)
		require.Equal(t, "TOKEN_ALREADY_USED", errCode(t, err))

		payload, ok := f.dispatcher.lastRejected()
		require.True(t, ok)
		require.Equal(t, "TOKEN_ALREADY_USED", payload.Reason)
		require.Equal(t, domain.TokenStatusUsed, payload.Status)
	})

	t.Run("concurrent validation admits exactly one", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)

		const workers = 32
		var wg sync.WaitGroup
		outcomes := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Validate(ctx, created.Token)
				outcomes <- err
			}()
		}
		wg.Wait()
		close(outcomes)

		var successes, alreadyUsed int
		for err := range outcomes {
			if err == nil {
				successes++
				continue
			}
			require.Equal(t, "TOKEN_ALREADY_USED", apperrors.ToDomainError(err).Code)
			alreadyUsed++
		}
		require.Equal(t, 1, successes)
		require.Equal(t, workers-1, alreadyUsed)
	})
}

func TestInvalidateOnFailedAttempt(t *testing.T) {
	ctx := context.Background()

	t.Run("never fires on a prefix of a live token", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)

		require.False(t, f.svc.InvalidateOnFailedAttempt(ctx, created.Token[:10]))

		access, err := f.svc.Validate(ctx, created.Token)
		require.NoError(t, err)
		require.NotNil(t, access)
	})

	t.Run("consumes an exact-match live token", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)

		require.True(t, f.svc.InvalidateOnFailedAttempt(ctx, created.Token))

		_, err = f.svc.Validate(ctx, created.Token)
		require.Equal(t, "TOKEN_ALREADY_USED", errCode(t, err))
	})

	t.Run("ignores used and expired tokens", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)
		_, err = f.svc.Validate(ctx, created.Token)
		require.NoError(t, err)

		require.False(t, f.svc.InvalidateOnFailedAttempt(ctx, created.Token))
		require.False(t, f.svc.InvalidateOnFailedAttempt(ctx, "missing-token"))
	})
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes a live token without granting access", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)

		require.NoError(t, f.svc.Invalidate(ctx, created.ID))

		_, err = f.svc.Validate(ctx, created.Token)
		require.Equal(t, "TOKEN_ALREADY_USED", errCode(t, err))
	})

	t.Run("second invalidation reports terminal status", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)
		require.NoError(t, f.svc.Invalidate(ctx, created.ID))

		err = f.svc.Invalidate(ctx, created.ID)
		require.Equal(t, "INVALID_INPUT", errCode(t, err))
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Invalidate(ctx, uuid.NewString())
		require.Equal(t, "NOT_FOUND", errCode(t, err))
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	seedExpired := func(t *testing.T, f *fixture, n int) {
		t.Helper()
		for i := 0; i < n; i++ {
			student := &domain.Student{Username: "expired_" + uuid.NewString(), Email: "x@example.com"}
			require.NoError(t, f.students.Create(ctx, student))
			require.NoError(t, f.store.WithinTx(ctx, func(tx repository.AccessTokenTx) error {
				return tx.Insert(ctx, &domain.AccessToken{
					ExamID:     f.exam.ID,
					StudentID:  student.ID,
					Token:      "expired-" + uuid.NewString(),
					ValidFrom:  time.Now().Add(-3 * time.Hour),
					ValidUntil: time.Now().Add(-2 * time.Hour),
				})
			}))
		}
	}

	t.Run("removes expired tokens and spares live ones", func(t *testing.T) {
		f := newFixture(t)
		seedExpired(t, f, 5)

		live, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)

		deleted, err := f.svc.Sweep(ctx, 0, 0)
		require.NoError(t, err)
		require.EqualValues(t, 5, deleted)

		access, err := f.svc.Validate(ctx, live.Token)
		require.NoError(t, err)
		require.NotNil(t, access)
	})

	t.Run("processes in bounded batches", func(t *testing.T) {
		f := newFixture(t)
		seedExpired(t, f, 7)

		deleted, err := f.svc.Sweep(ctx, 0, 2)
		require.NoError(t, err)
		require.EqualValues(t, 7, deleted)
	})

	t.Run("second sweep is idempotent", func(t *testing.T) {
		f := newFixture(t)
		seedExpired(t, f, 3)

		first, err := f.svc.Sweep(ctx, 0, 0)
		require.NoError(t, err)
		require.EqualValues(t, 3, first)

		second, err := f.svc.Sweep(ctx, 0, 0)
		require.NoError(t, err)
		require.Zero(t, second)
	})

	t.Run("older-than horizon spares recently expired tokens", func(t *testing.T) {
		f := newFixture(t)
		seedExpired(t, f, 2) // expired two hours ago

		deleted, err := f.svc.Sweep(ctx, 1, 0)
		require.NoError(t, err)
		require.Zero(t, deleted)

		count, err := f.svc.CountExpired(ctx, 0)
		require.NoError(t, err)
		require.EqualValues(t, 2, count)
	})

	t.Run("negative horizon rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Sweep(ctx, -1, 0)
		require.Equal(t, "INVALID_INPUT", errCode(t, err))
	})
}

func TestListExamTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("aggregates statistics", func(t *testing.T) {
		f := newFixture(t)

		used, err := f.svc.Issue(ctx, f.exam.ID, f.student.ID, 10, false)
		require.NoError(t, err)
		_, err = f.svc.Validate(ctx, used.Token)
		require.NoError(t, err)

		other := &domain.Student{Username: "bob_student", FirstName: "Bob", LastName: "Smith", Email: "bob@example.com"}
		require.NoError(t, f.students.Create(ctx, other))
		_, err = f.svc.Issue(ctx, f.exam.ID, other.ID, 10, false)
		require.NoError(t, err)

		third := &domain.Student{Username: "carol_student", Email: "carol@example.com"}
		require.NoError(t, f.students.Create(ctx, third))
		require.NoError(t, f.store.WithinTx(ctx, func(tx repository.AccessTokenTx) error {
			return tx.Insert(ctx, &domain.AccessToken{
				ExamID:     f.exam.ID,
				StudentID:  third.ID,
				Token:      "expired-" + uuid.NewString(),
				ValidFrom:  time.Now().Add(-2 * time.Hour),
				ValidUntil: time.Now().Add(-time.Hour),
			})
		}))

		listing, err := f.svc.ListExamTokens(ctx, f.exam.ID)
		require.NoError(t, err)
		require.Equal(t, 3, listing.Stats.Total)
		require.Equal(t, 1, listing.Stats.Used)
		require.Equal(t, 1, listing.Stats.Expired)
		require.Equal(t, 1, listing.Stats.Active)
	})

	t.Run("unknown exam", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ListExamTokens(ctx, uuid.NewString())
		require.Equal(t, "NOT_FOUND", errCode(t, err))
	})
}

func TestNormalizeHidesStoreInternals(t *testing.T) {
	err := normalize(context.DeadlineExceeded)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, "INTERNAL_ERROR", domainErr.Code)
	require.False(t, strings.Contains(domainErr.Message, "deadline"))
}
