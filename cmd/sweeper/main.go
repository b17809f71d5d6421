// Command sweeper performs a one-shot cleanup of expired exam access tokens.
package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/spec-kit/exam-access-service/internal/config"
	"github.com/spec-kit/exam-access-service/internal/observability"
	"github.com/spec-kit/exam-access-service/internal/persistence"
	"github.com/spec-kit/exam-access-service/internal/repository"
	"github.com/spec-kit/exam-access-service/internal/service"
)

func main() {
	days := flag.Int("days", 0, "delete tokens expired more than this many days ago (0 = all expired)")
	batchSize := flag.Int("batch-size", service.DefaultSweepBatchSize, "delete in batches of this size")
	dryRun := flag.Bool("dry-run", false, "report what would be deleted without deleting")
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

	tokenService := service.NewTokenService(service.TokenDependencies{
		TokenStore:  repository.NewAccessTokenStore(pg.PoolHandle()),
		ExamRepo:    repository.NewExamRepository(pg.PoolHandle()),
		StudentRepo: repository.NewStudentRepository(pg.PoolHandle()),
		Logger:      logger,
	})

	if *dryRun {
		count, err := tokenService.CountExpired(ctx, *days)
		if err != nil {
			logger.Fatal("dry run failed", zap.Error(err))
		}
		logger.Info("dry run: expired tokens that would be deleted",
			zap.Int64("count", count),
			zap.Int("days", *days),
		)
		return
	}

	deleted, err := tokenService.Sweep(ctx, *days, *batchSize)
	if err != nil {
		logger.Fatal("sweep failed", zap.Error(err))
	}
	logger.Info("cleanup complete", zap.Int64("deleted", deleted))
}
