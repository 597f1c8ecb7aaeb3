package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"eduplatform-api"`

	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"LOG_WARN_STACK" default:"false"`

	DatabaseURL    string `envconfig:"DATABASE_URL"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DBMaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	AutoMigrate    bool   `envconfig:"AUTO_MIGRATE" default:"false"`

	RedisURL      string        `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
	StatsCacheTTL time.Duration `envconfig:"STATS_CACHE_TTL" default:"1m"`

	JWTSecret        string        `envconfig:"JWT_SECRET"`
	JWTAccessExpiry  time.Duration `envconfig:"JWT_ACCESS_EXPIRY" default:"15m"`
	JWTRefreshExpiry time.Duration `envconfig:"JWT_REFRESH_EXPIRY" default:"168h"`

	MinIOEndpoint     string        `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	MinIOAccessKey    string        `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	MinIOSecretKey    string        `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	MinIOBucket       string        `envconfig:"MINIO_BUCKET" default:"eduplatform-content"`
	MinIOUseSSL       bool          `envconfig:"MINIO_USE_SSL" default:"false"`
	PlaybackURLExpiry time.Duration `envconfig:"PLAYBACK_URL_EXPIRY" default:"1h"`

	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`

	ResendAPIKey       string `envconfig:"RESEND_API_KEY"`
	FromEmail          string `envconfig:"FROM_EMAIL" default:"noreply@example.com"`
	Domain             string `envconfig:"DOMAIN" default:"localhost:5173"`
	NotificationLocale string `envconfig:"NOTIFICATION_LOCALE" default:"en"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.PlaybackURLExpiry <= 0 || c.PlaybackURLExpiry > 7*24*time.Hour {
		return fmt.Errorf("PLAYBACK_URL_EXPIRY must be between 1s and 168h")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// EmailEnabled reports whether outbound notification email is configured.
func (c *Config) EmailEnabled() bool {
	return c.ResendAPIKey != ""
}
