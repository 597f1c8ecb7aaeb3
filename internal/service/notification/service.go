package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eduplatform/internal/domain"
	"eduplatform/internal/pkg/apperror"
	"eduplatform/internal/pkg/logger"
	"eduplatform/internal/repository"
	"eduplatform/internal/service/email"
	"eduplatform/internal/service/realtime"
)

const emailTimeout = 30 * time.Second

type Service interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType domain.NotificationType, title, message string, payload map[string]any) error
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) (domain.Page[domain.Notification], error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan domain.Notification, func(), error)
}

type service struct {
	notifRepo repository.NotificationRepository
	userRepo  repository.UserRepository
	broker    realtime.Broker
	emailSvc  email.Service
	log       *logger.Logger
}

// NewService wires the in-app store with realtime delivery. emailSvc may be
// nil when outbound email is not configured.
func NewService(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	broker realtime.Broker,
	emailSvc email.Service,
	log *logger.Logger,
) Service {
	if broker == nil {
		broker = realtime.NewLocalBroker()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &service{
		notifRepo: notifRepo,
		userRepo:  userRepo,
		broker:    broker,
		emailSvc:  emailSvc,
		log:       log,
	}
}

func (s *service) Notify(ctx context.Context, userID uuid.UUID, notifType domain.NotificationType, title, message string, payload map[string]any) error {
	var data json.RawMessage
	if len(payload) > 0 {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode notification payload: %w", err)
		}
		data = raw
	}

	notif := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}

	if err := s.notifRepo.Create(ctx, notif); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	logCtx := s.log.WithFields(ctx, map[string]any{
		"notification_id": notif.ID.String(),
		"notify_user_id":  userID.String(),
		"notify_type":     string(notifType),
	})

	if err := s.broker.Publish(ctx, notif); err != nil {
		s.log.Warn(logCtx, "failed to publish realtime notification", err)
	}

	if s.emailSvc != nil && notifType.IsAccessEvent() {
		s.sendEmail(logCtx, notif, payload)
	}

	return nil
}

func (s *service) sendEmail(ctx context.Context, notif *domain.Notification, payload map[string]any) {
	user, err := s.userRepo.GetByID(ctx, notif.UserID)
	if err != nil || user == nil || user.Email == "" {
		if err != nil {
			s.log.Warn(ctx, "failed to load notification recipient", err)
		}
		return
	}

	go func(toEmail, recipientName string) {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emailTimeout)
		defer cancel()
		if err := s.emailSvc.SendNotificationEmail(sendCtx, toEmail, recipientName, notif, payload); err != nil {
			s.log.Warn(sendCtx, "failed to send notification email", err)
		}
	}(user.Email, user.FullName)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) (domain.Page[domain.Notification], error) {
	params.Normalize()

	notifications, total, err := s.notifRepo.ListByUser(ctx, userID, unreadOnly, params)
	if err != nil {
		return domain.Page[domain.Notification]{}, apperror.Store(err, "failed to list notifications")
	}

	return domain.NewPage(notifications, params, total), nil
}

func (s *service) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return mapNotFound(s.notifRepo.MarkAsRead(ctx, userID, id))
}

func (s *service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.notifRepo.MarkAllAsRead(ctx, userID); err != nil {
		return apperror.Store(err, "failed to mark notifications as read")
	}
	return nil
}

func (s *service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.notifRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperror.Store(err, "failed to count unread notifications")
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return mapNotFound(s.notifRepo.Delete(ctx, userID, id))
}

func (s *service) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan domain.Notification, func(), error) {
	ch, cancel, err := s.broker.Subscribe(ctx, userID)
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.CodeDependency, err, "realtime feed unavailable")
	}
	return ch, cancel, nil
}

func mapNotFound(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotificationNotFound):
		return apperror.NotFound("notification not found")
	default:
		return apperror.Store(err, "failed to update notification")
	}
}
