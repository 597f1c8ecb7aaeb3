package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"eduplatform/internal/domain"
	"eduplatform/internal/pkg/apperror"
	"eduplatform/internal/service/auth"
)

const (
	UserContextKey   = "user"
	UserIDContextKey = "user_id"
)

// Authenticator is the part of auth.Service the middleware depends on.
type Authenticator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

func AuthRequired(authService Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperror.New(apperror.CodeUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return apperror.New(apperror.CodeUnauthorized, "invalid authorization header format")
		}

		claims, err := authService.ValidateAccessToken(parts[1])
		if err != nil {
			return apperror.Wrap(apperror.CodeUnauthorized, err, "invalid or expired token")
		}

		user, err := authService.GetUserByID(c.UserContext(), claims.UserID)
		if err != nil {
			return err
		}
		if user == nil || !user.IsActive {
			return apperror.New(apperror.CodeUnauthorized, "user not found")
		}

		c.Locals(UserContextKey, user)
		c.Locals(UserIDContextKey, user.ID)
		if log := loggerFrom(c); log != nil {
			c.SetUserContext(log.WithUserID(c.UserContext(), user.ID.String()))
		}

		return c.Next()
	}
}

func GetCurrentUser(c *fiber.Ctx) *domain.User {
	user, ok := c.Locals(UserContextKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := c.Locals(UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, apperror.New(apperror.CodeUnauthorized, "user not authenticated")
	}
	return userID, nil
}

// CurrentReviewer resolves the acting user into the capability the access
// workflow checks. Unauthenticated callers get a zero Reviewer.
func CurrentReviewer(c *fiber.Ctx) domain.Reviewer {
	user := GetCurrentUser(c)
	if user == nil {
		return domain.Reviewer{}
	}
	return user.AsReviewer()
}
