package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/exam-access-service/internal/config"
	"github.com/spec-kit/exam-access-service/internal/service"
)

// StartSweeper launches the periodic expiry sweep in a goroutine. The sweep
// deletes in bounded batches and is safe to run against live traffic, so the
// only coordination needed is the shutdown context.
func StartSweeper(ctx context.Context, tokenService *service.TokenService, cfg config.TokenConfig, logger *zap.Logger) {
	if tokenService == nil || !cfg.SweeperEnabled {
		return
	}

	go func() {
		ticker := time.NewTicker(cfg.SweepInterval())
		defer ticker.Stop()

		logger.Info("sweeper started",
			zap.Duration("interval", cfg.SweepInterval()),
			zap.Int("batch_size", cfg.SweepBatchSize),
		)

		for {
			select {
			case <-ctx.Done():
				logger.Info("sweeper stopped")
				return
			case <-ticker.C:
				if _, err := tokenService.Sweep(ctx, cfg.SweepOlderThanDays, cfg.SweepBatchSize); err != nil {
					logger.Error("sweep failed", zap.Error(err))
				}
			}
		}
	}()
}
