package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/exam-access-service/internal/domain"
	apperrors "github.com/spec-kit/exam-access-service/pkg/util"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 5)

	t.Run("claims survive generate and parse", func(t *testing.T) {
		bearer, expires, err := tm.GenerateToken("subject-1", domain.CallerRoleInstructor)
		require.NoError(t, err)
		require.False(t, expires.IsZero())

		claims, err := tm.ParseToken(bearer)
		require.NoError(t, err)
		require.Equal(t, "subject-1", claims.SubjectID)
		require.Equal(t, domain.CallerRoleInstructor, claims.Role)
	})

	t.Run("rejects a token signed with a different secret", func(t *testing.T) {
		other := NewTokenManager("other-secret", 5)
		bearer, _, err := other.GenerateToken("subject-1", domain.CallerRoleInstructor)
		require.NoError(t, err)

		_, err = tm.ParseToken(bearer)
		require.Error(t, err)
	})
}

func TestInstructorGate(t *testing.T) {
	tm := NewTokenManager("test-secret", 5)
	mw := NewAuthMiddleware(tm)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/protected", mw.Handle, RequireInstructor(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	request := func(t *testing.T, bearer string) int {
		t.Helper()
		req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	t.Run("missing header is unauthorized", func(t *testing.T) {
		require.Equal(t, fiber.StatusUnauthorized, request(t, ""))
	})

	t.Run("garbage bearer is unauthorized", func(t *testing.T) {
		require.Equal(t, fiber.StatusUnauthorized, request(t, "not-a-jwt"))
	})

	t.Run("student role is forbidden", func(t *testing.T) {
		bearer, _, err := tm.GenerateToken("student-1", domain.CallerRoleStudent)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusForbidden, request(t, bearer))
	})

	t.Run("instructor role passes", func(t *testing.T) {
		bearer, _, err := tm.GenerateToken("instructor-1", domain.CallerRoleInstructor)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, request(t, bearer))
	})
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pass", hashed)

	require.NoError(t, ComparePassword(hashed, "s3cret-pass"))
	require.Error(t, ComparePassword(hashed, "wrong-pass"))
}
