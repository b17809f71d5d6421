package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/exam-access-service/internal/api/http"
	"github.com/spec-kit/exam-access-service/internal/api/http/handlers"
	"github.com/spec-kit/exam-access-service/internal/auth"
	"github.com/spec-kit/exam-access-service/internal/config"
	"github.com/spec-kit/exam-access-service/internal/events"
	"github.com/spec-kit/exam-access-service/internal/guard"
	"github.com/spec-kit/exam-access-service/internal/observability"
	"github.com/spec-kit/exam-access-service/internal/persistence"
	"github.com/spec-kit/exam-access-service/internal/repository"
	"github.com/spec-kit/exam-access-service/internal/service"
	"github.com/spec-kit/exam-access-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	examRepo := repository.NewExamRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	tokenStore := repository.NewAccessTokenStore(pool)

	tokenService := service.NewTokenService(service.TokenDependencies{
		TokenStore:      tokenStore,
		ExamRepo:        examRepo,
		StudentRepo:     studentRepo,
		Dispatcher:      dispatcher,
		Logger:          logger,
		Metrics:         metrics,
		GenerateRetries: cfg.Token.GenerateRetries,
	})
	examService := service.NewExamService(examRepo, studentRepo, logger)

	auditService := service.NewAuditService(dispatcher, logger, cfg.Notification)
	auditService.RegisterHandlers()

	worker.StartSweeper(ctx, tokenService, cfg.Token, logger)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	throttle := guard.NewValidationThrottle(
		redis.Client,
		logger,
		cfg.Throttle.ValidationLimit,
		cfg.Throttle.ValidationWindow(),
	)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Exams:          handlers.NewExamsHandler(examService),
		Tokens:         handlers.NewTokensHandler(tokenService, throttle),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
