package handler

import (
	"github.com/gofiber/fiber/v2"

	"eduplatform/internal/domain"
	"eduplatform/internal/middleware"
	"eduplatform/internal/service"
)

type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Level        *LevelHandler
	Access       *AccessHandler
	Notification *NotificationHandler
	Audit        *AuditHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(services.Auth),
		User:         NewUserHandler(services.Auth),
		Level:        NewLevelHandler(services.Level, services.Access, services.Content),
		Access:       NewAccessHandler(services.Access),
		Notification: NewNotificationHandler(services.Notification),
		Audit:        NewAuditHandler(services.Audit),
	}
}

// RegisterRoutes mounts the /api/v1 surface on router.
func RegisterRoutes(router fiber.Router, h *Handlers, authn middleware.Authenticator) {
	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/refresh", h.Auth.RefreshToken)

	protected := v1.Group("", middleware.AuthRequired(authn))
	reviewer := middleware.RequireReviewer()

	protected.Get("/auth/me", h.Auth.Me)
	protected.Post("/auth/logout", h.Auth.Logout)

	users := protected.Group("/users")
	users.Put("/:userId/role", middleware.RequireRole(domain.RoleAdmin), h.User.AssignRole)

	levels := protected.Group("/levels")
	levels.Get("/", h.Level.List)
	levels.Post("/", reviewer, h.Level.Create)
	levels.Patch("/:levelId", reviewer, h.Level.Update)
	levels.Get("/:levelId/access", h.Level.CheckAccess)
	levels.Get("/:levelId/playback-url", h.Level.PlaybackURL)

	accessGroup := protected.Group("/access")
	accessGroup.Get("/stats", reviewer, h.Access.Stats)
	accessGroup.Post("/grants", reviewer, h.Access.Grant)
	accessGroup.Get("/grants/mine", h.Access.ListMyGrants)

	requests := accessGroup.Group("/requests")
	requests.Post("/", h.Access.CreateRequest)
	requests.Get("/", reviewer, h.Access.ListPending)
	requests.Get("/mine", h.Access.ListMine)
	requests.Get("/:requestId", h.Access.Get)
	requests.Get("/:requestId/history", reviewer, h.Audit.RequestHistory)
	requests.Post("/:requestId/review", reviewer, h.Access.Review)

	notifications := protected.Group("/notifications")
	notifications.Get("/", h.Notification.List)
	notifications.Get("/unread-count", h.Notification.GetUnreadCount)
	notifications.Get("/stream", h.Notification.Stream)
	notifications.Patch("/:id/read", h.Notification.MarkAsRead)
	notifications.Post("/mark-all-read", h.Notification.MarkAllAsRead)
	notifications.Delete("/:id", h.Notification.Delete)

	audit := protected.Group("/audit")
	audit.Get("/recent", reviewer, h.Audit.GetRecentActivities)
}
