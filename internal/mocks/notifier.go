package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"eduplatform/internal/domain"
)

type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(ctx context.Context, userID uuid.UUID, notifType domain.NotificationType, title, message string, payload map[string]any) error {
	args := m.Called(ctx, userID, notifType, title, message, payload)
	return args.Error(0)
}
