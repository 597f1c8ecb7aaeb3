package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"eduplatform/internal/domain"
)

type AuditService struct {
	mock.Mock
}

func (m *AuditService) GetRecentActivities(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditLog), args.Error(1)
}

func (m *AuditService) ListForRequest(ctx context.Context, requestID uuid.UUID, params domain.PaginationParams) (domain.Page[domain.AuditLog], error) {
	args := m.Called(ctx, requestID, params)
	return args.Get(0).(domain.Page[domain.AuditLog]), args.Error(1)
}
