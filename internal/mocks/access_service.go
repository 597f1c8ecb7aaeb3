package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"eduplatform/internal/domain"
)

type AccessService struct {
	mock.Mock
}

func (m *AccessService) RequestAccess(ctx context.Context, requesterID uuid.UUID, input domain.CreateAccessRequestInput, meta *domain.RequestMeta) (*domain.AccessRequest, error) {
	args := m.Called(ctx, requesterID, input, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessRequest), args.Error(1)
}

func (m *AccessService) ReviewAccess(ctx context.Context, requestID uuid.UUID, reviewer domain.Reviewer, input domain.ReviewAccessRequestInput, meta *domain.RequestMeta) (*domain.ReviewResult, error) {
	args := m.Called(ctx, requestID, reviewer, input, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewResult), args.Error(1)
}

func (m *AccessService) GrantAccess(ctx context.Context, reviewer domain.Reviewer, input domain.GrantAccessInput, meta *domain.RequestMeta) (*domain.AccessGrant, error) {
	args := m.Called(ctx, reviewer, input, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessGrant), args.Error(1)
}

func (m *AccessService) HasAccess(ctx context.Context, userID, levelID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, levelID)
	return args.Bool(0), args.Error(1)
}

func (m *AccessService) GetRequest(ctx context.Context, id uuid.UUID, viewer domain.Reviewer) (*domain.AccessRequest, error) {
	args := m.Called(ctx, id, viewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessRequest), args.Error(1)
}

func (m *AccessService) ListPending(ctx context.Context, params domain.PaginationParams) (domain.Page[domain.AccessRequest], error) {
	args := m.Called(ctx, params)
	return args.Get(0).(domain.Page[domain.AccessRequest]), args.Error(1)
}

func (m *AccessService) ListByRequester(ctx context.Context, requesterID uuid.UUID, params domain.PaginationParams) (domain.Page[domain.AccessRequest], error) {
	args := m.Called(ctx, requesterID, params)
	return args.Get(0).(domain.Page[domain.AccessRequest]), args.Error(1)
}

func (m *AccessService) ListGrants(ctx context.Context, userID uuid.UUID) ([]domain.AccessGrant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccessGrant), args.Error(1)
}

func (m *AccessService) ListLevels(ctx context.Context, userID uuid.UUID) ([]domain.LevelWithAccess, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LevelWithAccess), args.Error(1)
}

func (m *AccessService) Stats(ctx context.Context) (*domain.AccessStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessStats), args.Error(1)
}
