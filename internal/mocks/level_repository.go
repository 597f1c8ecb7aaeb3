package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"eduplatform/internal/domain"
)

type LevelRepository struct {
	mock.Mock
}

func (m *LevelRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Level, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Level), args.Error(1)
}

func (m *LevelRepository) List(ctx context.Context) ([]domain.Level, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Level), args.Error(1)
}

func (m *LevelRepository) Create(ctx context.Context, level *domain.Level) error {
	args := m.Called(ctx, level)
	return args.Error(0)
}

func (m *LevelRepository) Update(ctx context.Context, level *domain.Level) error {
	args := m.Called(ctx, level)
	return args.Error(0)
}
