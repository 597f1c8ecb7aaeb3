package repository

import (
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	Access       AccessStore
	User         UserRepository
	Level        LevelRepository
	AuditLog     AuditLogRepository
	Notification NotificationRepository
	Session      SessionRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Access:       NewAccessStore(db),
		User:         NewUserRepository(db),
		Level:        NewLevelRepository(db),
		AuditLog:     NewAuditLogRepository(db),
		Notification: NewNotificationRepository(db),
		Session:      NewSessionRepository(db),
	}
}
