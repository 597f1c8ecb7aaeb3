package audit

import (
	"context"

	"github.com/google/uuid"

	"eduplatform/internal/domain"
	"eduplatform/internal/pkg/apperror"
	"eduplatform/internal/repository"
)

const maxRecent = 100

type Service interface {
	GetRecentActivities(ctx context.Context, limit int) ([]domain.AuditLog, error)
	ListForRequest(ctx context.Context, requestID uuid.UUID, params domain.PaginationParams) (domain.Page[domain.AuditLog], error)
}

type service struct {
	auditRepo repository.AuditLogRepository
}

func NewService(auditRepo repository.AuditLogRepository) Service {
	return &service{
		auditRepo: auditRepo,
	}
}

func (s *service) GetRecentActivities(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 || limit > maxRecent {
		limit = 20
	}
	params := domain.PaginationParams{
		Page:     1,
		PageSize: limit,
	}

	logs, _, err := s.auditRepo.List(ctx, params)
	if err != nil {
		return nil, apperror.Store(err, "failed to list audit logs")
	}
	return logs, nil
}

func (s *service) ListForRequest(ctx context.Context, requestID uuid.UUID, params domain.PaginationParams) (domain.Page[domain.AuditLog], error) {
	params.Normalize()

	logs, total, err := s.auditRepo.ListByEntity(ctx, domain.EntityAccessRequest, requestID, params)
	if err != nil {
		return domain.Page[domain.AuditLog]{}, apperror.Store(err, "failed to list audit logs")
	}
	return domain.NewPage(logs, params, total), nil
}
