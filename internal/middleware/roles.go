package middleware

import (
	"github.com/gofiber/fiber/v2"

	"eduplatform/internal/domain"
	"eduplatform/internal/pkg/apperror"
)

func RequireRole(requiredRole domain.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetCurrentUser(c)
		if user == nil {
			return apperror.New(apperror.CodeUnauthorized, "user not authenticated")
		}

		if !user.HasRole(requiredRole) {
			return apperror.Forbidden("insufficient permissions for this operation")
		}

		return c.Next()
	}
}

// RequireReviewer admits teachers and admins.
func RequireReviewer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetCurrentUser(c)
		if user == nil {
			return apperror.New(apperror.CodeUnauthorized, "user not authenticated")
		}

		if !user.CanReview() {
			return apperror.Forbidden("only reviewers can perform this operation")
		}

		return c.Next()
	}
}
