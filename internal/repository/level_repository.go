package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"eduplatform/internal/domain"
)

type LevelRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Level, error)
	List(ctx context.Context) ([]domain.Level, error)
	Create(ctx context.Context, level *domain.Level) error
	Update(ctx context.Context, level *domain.Level) error
}

const levelColumns = `id, title, description, position, access_policy, created_by, created_at, updated_at`

type levelRepository struct {
	db *sqlx.DB
}

func NewLevelRepository(db *sqlx.DB) LevelRepository {
	return &levelRepository{db: db}
}

func (r *levelRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Level, error) {
	var level domain.Level
	query := `SELECT ` + levelColumns + ` FROM levels WHERE id = $1`

	err := r.db.GetContext(ctx, &level, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *levelRepository) List(ctx context.Context) ([]domain.Level, error) {
	levels := []domain.Level{}
	query := `SELECT ` + levelColumns + ` FROM levels ORDER BY position ASC, created_at ASC`

	err := r.db.SelectContext(ctx, &levels, query)
	return levels, err
}

func (r *levelRepository) Create(ctx context.Context, level *domain.Level) error {
	query := `
		INSERT INTO levels (id, title, description, position, access_policy, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		level.ID, level.Title, level.Description, level.Position, level.AccessPolicy, level.CreatedBy,
	).Scan(&level.CreatedAt, &level.UpdatedAt)
	if IsForeignKeyViolation(err) {
		return domain.ErrUserNotFound
	}
	return err
}

// Update writes every mutable column of level. The caller merges partial
// input onto the current row first.
func (r *levelRepository) Update(ctx context.Context, level *domain.Level) error {
	query := `
		UPDATE levels
		SET title = $2, description = $3, position = $4, access_policy = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		level.ID, level.Title, level.Description, level.Position, level.AccessPolicy,
	).Scan(&level.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrLevelNotFound
	}
	return err
}
