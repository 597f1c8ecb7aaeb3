package service

import (
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"

	"eduplatform/internal/config"
	"eduplatform/internal/metrics"
	"eduplatform/internal/pkg/logger"
	"eduplatform/internal/repository"
	"eduplatform/internal/service/access"
	"eduplatform/internal/service/audit"
	"eduplatform/internal/service/auth"
	"eduplatform/internal/service/content"
	"eduplatform/internal/service/email"
	"eduplatform/internal/service/level"
	"eduplatform/internal/service/notification"
	"eduplatform/internal/service/realtime"
)

type Services struct {
	Auth         auth.Service
	Access       access.Service
	Level        level.Service
	Notification notification.Service
	Audit        audit.Service
	Content      content.Service
	Email        email.Service
}

// NewServices wires the service graph. redisClient and minioClient may be nil;
// realtime delivery then stays in-process and playback URLs are unavailable.
func NewServices(
	repos *repository.Repositories,
	redisClient *redis.Client,
	minioClient *minio.Client,
	cfg *config.Config,
	log *logger.Logger,
	accessMetrics *metrics.AccessMetrics,
) *Services {
	var emailService email.Service
	if cfg.EmailEnabled() {
		emailService = email.NewService(cfg)
	}

	var broker realtime.Broker
	if redisClient != nil {
		broker = realtime.NewRedisBroker(redisClient, log)
	} else {
		broker = realtime.NewLocalBroker()
	}

	authService := auth.NewService(repos.User, repos.Session, emailService, cfg, log)
	auditService := audit.NewService(repos.AuditLog)
	levelService := level.NewService(repos.Level, repos.AuditLog, log)
	notificationService := notification.NewService(repos.Notification, repos.User, broker, emailService, log)

	accessService := access.NewService(
		repos.Access,
		repos.Level,
		repos.User,
		repos.AuditLog,
		notificationService,
		access.Options{
			Locale:        cfg.NotificationLocale,
			StatsCacheTTL: cfg.StatsCacheTTL,
			Logger:        log,
			Metrics:       accessMetrics,
			Redis:         redisClient,
		},
	)

	var contentService content.Service
	if minioClient != nil {
		contentService = content.NewService(minioClient, accessService, cfg.MinIOBucket, cfg.PlaybackURLExpiry)
	}

	return &Services{
		Auth:         authService,
		Access:       accessService,
		Level:        levelService,
		Notification: notificationService,
		Audit:        auditService,
		Content:      contentService,
		Email:        emailService,
	}
}
