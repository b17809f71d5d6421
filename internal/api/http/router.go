package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exam-access-service/internal/api/http/handlers"
	"github.com/spec-kit/exam-access-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Exams          *handlers.ExamsHandler
	Tokens         *handlers.TokensHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Anonymous validation entry point. Throttling happens in the handler.
	app.Get("/exams/access/:token", cfg.Tokens.Validate)

	instructor := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireInstructor())
	instructor.Post("/exams", cfg.Exams.Create)
	instructor.Get("/exams", cfg.Exams.List)
	instructor.Get("/exams/:exam_id", cfg.Exams.Get)
	instructor.Post("/exams/:exam_id/tokens", cfg.Tokens.Issue)
	instructor.Get("/exams/:exam_id/tokens", cfg.Tokens.List)
	instructor.Delete("/tokens/:token_id", cfg.Tokens.Invalidate)
	instructor.Post("/tokens/cleanup", cfg.Tokens.Sweep)
}
