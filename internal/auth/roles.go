package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exam-access-service/internal/domain"
	apperrors "github.com/spec-kit/exam-access-service/pkg/util"
)

// RequireInstructor ensures the caller carries the instructor role.
func RequireInstructor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Role != domain.CallerRoleInstructor {
			return apperrors.NewForbidden("instructor role required")
		}
		return c.Next()
	}
}
