package level

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"eduplatform/internal/domain"
	"eduplatform/internal/pkg/apperror"
	"eduplatform/internal/pkg/logger"
	"eduplatform/internal/repository"
)

// Service manages the level catalog. Access state per viewer lives in the
// access service.
type Service interface {
	Create(ctx context.Context, author domain.Reviewer, input domain.CreateLevelInput, meta *domain.RequestMeta) (*domain.Level, error)
	Update(ctx context.Context, author domain.Reviewer, id uuid.UUID, input domain.UpdateLevelInput, meta *domain.RequestMeta) (*domain.Level, error)
}

type service struct {
	levelRepo repository.LevelRepository
	auditRepo repository.AuditLogRepository
	log       *logger.Logger
}

func NewService(levelRepo repository.LevelRepository, auditRepo repository.AuditLogRepository, log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	return &service{
		levelRepo: levelRepo,
		auditRepo: auditRepo,
		log:       log,
	}
}

func (s *service) Create(ctx context.Context, author domain.Reviewer, input domain.CreateLevelInput, meta *domain.RequestMeta) (*domain.Level, error) {
	if !author.CanReview {
		return nil, apperror.Forbidden("only teachers and admins can manage levels")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperror.Validation("title is required")
	}
	policy := input.AccessPolicy
	if policy == "" {
		policy = domain.PolicyRestricted
	}
	if !policy.IsValid() {
		return nil, apperror.Validation("access_policy must be public or restricted")
	}

	createdBy := author.ID
	level := &domain.Level{
		ID:           uuid.New(),
		Title:        title,
		Description:  trimmed(input.Description),
		Position:     input.Position,
		AccessPolicy: policy,
		CreatedBy:    &createdBy,
	}

	if err := s.levelRepo.Create(ctx, level); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Store(err, "failed to create level")
	}

	s.logAudit(ctx, domain.CreateAuditLogInput{
		UserID:     author.ID,
		Action:     domain.AuditCreateLevel,
		EntityType: domain.EntityLevel,
		EntityID:   level.ID,
		NewValue:   level,
	}, meta)

	return level, nil
}

func (s *service) Update(ctx context.Context, author domain.Reviewer, id uuid.UUID, input domain.UpdateLevelInput, meta *domain.RequestMeta) (*domain.Level, error) {
	if !author.CanReview {
		return nil, apperror.Forbidden("only teachers and admins can manage levels")
	}
	if input.IsEmpty() {
		return nil, apperror.Validation("no fields to update")
	}

	current, err := s.levelRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Store(err, "failed to load level")
	}
	if current == nil {
		return nil, apperror.NotFound("level not found")
	}
	before := *current

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperror.Validation("title cannot be empty")
		}
		current.Title = title
	}
	if input.Description != nil {
		current.Description = trimmed(input.Description)
	}
	if input.Position != nil {
		current.Position = *input.Position
	}
	if input.AccessPolicy != nil {
		if !input.AccessPolicy.IsValid() {
			return nil, apperror.Validation("access_policy must be public or restricted")
		}
		current.AccessPolicy = *input.AccessPolicy
	}

	if err := s.levelRepo.Update(ctx, current); err != nil {
		if errors.Is(err, domain.ErrLevelNotFound) {
			return nil, apperror.NotFound("level not found")
		}
		return nil, apperror.Store(err, "failed to update level")
	}

	s.logAudit(ctx, domain.CreateAuditLogInput{
		UserID:     author.ID,
		Action:     domain.AuditUpdateLevel,
		EntityType: domain.EntityLevel,
		EntityID:   current.ID,
		OldValue:   before,
		NewValue:   current,
	}, meta)

	return current, nil
}

func (s *service) logAudit(ctx context.Context, input domain.CreateAuditLogInput, meta *domain.RequestMeta) {
	if s.auditRepo == nil {
		return
	}
	meta.Apply(&input)
	if err := repository.CreateAuditLog(ctx, s.auditRepo, input); err != nil {
		s.log.Warn(s.log.WithField(ctx, "audit_action", input.Action), "failed to write audit log", err)
	}
}

// trimmed drops blank descriptions so they are stored as NULL.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
