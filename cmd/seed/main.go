// Command seed populates the database with development fixtures: three exams
// (future, current, past), three students, and an instructor bearer token
// printed to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/exam-access-service/internal/auth"
	"github.com/spec-kit/exam-access-service/internal/config"
	"github.com/spec-kit/exam-access-service/internal/domain"
	"github.com/spec-kit/exam-access-service/internal/observability"
	"github.com/spec-kit/exam-access-service/internal/persistence"
	"github.com/spec-kit/exam-access-service/internal/repository"
)

func main() {
	studentPassword := flag.String("student-password", "student999", "password assigned to seeded students")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	examRepo := repository.NewExamRepository(pg.PoolHandle())
	studentRepo := repository.NewStudentRepository(pg.PoolHandle())

	now := time.Now()
	exams := []domain.Exam{
		{
			Title:     "Algorithms and Data Structures",
			StartTime: now.Add(24 * time.Hour),
			EndTime:   now.Add(26 * time.Hour),
		},
		{
			Title:     "Distributed Systems",
			StartTime: now.Add(-30 * time.Minute),
			EndTime:   now.Add(90 * time.Minute),
		},
		{
			Title:     "Database Design and SQL",
			StartTime: now.Add(-7 * 24 * time.Hour),
			EndTime:   now.Add(-7*24*time.Hour + 2*time.Hour),
		},
	}
	for i := range exams {
		if err := examRepo.Create(ctx, &exams[i]); err != nil {
			logger.Fatal("failed to create exam", zap.String("title", exams[i].Title), zap.Error(err))
		}
		logger.Info("exam created", zap.String("id", exams[i].ID), zap.String("title", exams[i].Title))
	}

	passwordHash, err := auth.HashPassword(*studentPassword, cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to hash password", zap.Error(err))
	}

	students := []domain.Student{
		{Username: "alice_student", FirstName: "Alice", LastName: "Johnson", Email: "alice@example.com"},
		{Username: "bob_student", FirstName: "Bob", LastName: "Smith", Email: "bob@example.com"},
		{Username: "carol_student", FirstName: "Carol", LastName: "Davis", Email: "carol@example.com"},
	}
	for i := range students {
		students[i].PasswordHash = passwordHash
		if _, err := studentRepo.GetByUsername(ctx, students[i].Username); err == nil {
			logger.Info("student already exists", zap.String("username", students[i].Username))
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			logger.Fatal("failed to check student", zap.Error(err))
		}
		if err := studentRepo.Create(ctx, &students[i]); err != nil {
			logger.Fatal("failed to create student", zap.String("username", students[i].Username), zap.Error(err))
		}
		logger.Info("student created", zap.String("id", students[i].ID), zap.String("username", students[i].Username))
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	bearer, expires, err := tokenManager.GenerateToken(uuid.NewString(), domain.CallerRoleInstructor)
	if err != nil {
		logger.Fatal("failed to mint instructor token", zap.Error(err))
	}

	fmt.Printf("instructor bearer token (expires %s):\n%s\n", expires.Format(time.RFC3339), bearer)
}
