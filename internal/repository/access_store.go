package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"eduplatform/internal/domain"
)

// AccessStore persists access requests and grants. Every mutation is a
// single atomic statement, so uniqueness holds without caller-side locking.
type AccessStore interface {
	FindPendingRequest(ctx context.Context, requesterID, levelID uuid.UUID) (*domain.AccessRequest, error)
	FindGrant(ctx context.Context, userID, levelID uuid.UUID) (*domain.AccessGrant, error)
	CreateRequest(ctx context.Context, requesterID, levelID uuid.UUID, message string) (*domain.AccessRequest, error)
	ReviewRequest(ctx context.Context, requestID uuid.UUID, status domain.AccessRequestStatus, reviewerID uuid.UUID, note *string) (*domain.AccessRequest, error)
	UpsertGrant(ctx context.Context, userID, levelID, grantedBy uuid.UUID, expiresAt *time.Time, reason string) (*domain.AccessGrant, error)

	GetRequest(ctx context.Context, id uuid.UUID) (*domain.AccessRequest, error)
	ListRequests(ctx context.Context, filter domain.AccessRequestFilter, params domain.PaginationParams) ([]domain.AccessRequest, int64, error)
	ListGrants(ctx context.Context, userID uuid.UUID) ([]domain.AccessGrant, error)
	CountStats(ctx context.Context) (domain.AccessStats, error)

	// InTx runs fn against a store bound to one transaction. fn's error
	// rolls everything back.
	InTx(ctx context.Context, fn func(store AccessStore) error) error
}

const accessRequestColumns = `id, requester_id, level_id, message, status, review_note, reviewed_by, reviewed_at, created_at, updated_at`

const accessGrantColumns = `id, user_id, level_id, granted_by, granted_at, expires_at, reason`

type accessStore struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

func NewAccessStore(db *sqlx.DB) AccessStore {
	return &accessStore{db: db, q: db}
}

func (s *accessStore) FindPendingRequest(ctx context.Context, requesterID, levelID uuid.UUID) (*domain.AccessRequest, error) {
	var req domain.AccessRequest
	query := `SELECT ` + accessRequestColumns + ` FROM level_access_requests
		WHERE requester_id = $1 AND level_id = $2 AND status = 'pending'`

	err := sqlx.GetContext(ctx, s.q, &req, query, requesterID, levelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *accessStore) FindGrant(ctx context.Context, userID, levelID uuid.UUID) (*domain.AccessGrant, error) {
	var grant domain.AccessGrant
	query := `SELECT ` + accessGrantColumns + ` FROM level_access
		WHERE user_id = $1 AND level_id = $2 AND (expires_at IS NULL OR expires_at > NOW())`

	err := sqlx.GetContext(ctx, s.q, &grant, query, userID, levelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (s *accessStore) CreateRequest(ctx context.Context, requesterID, levelID uuid.UUID, message string) (*domain.AccessRequest, error) {
	// The partial unique index rejects a second pending row; the NOT EXISTS
	// guard skips the insert when a live grant is already present.
	query := `
		INSERT INTO level_access_requests (id, requester_id, level_id, message, status)
		SELECT $1::uuid, $2::uuid, $3::uuid, $4::text, 'pending'
		WHERE NOT EXISTS (
			SELECT 1 FROM level_access
			WHERE user_id = $2::uuid AND level_id = $3::uuid
			  AND (expires_at IS NULL OR expires_at > NOW())
		)
		RETURNING ` + accessRequestColumns

	var req domain.AccessRequest
	err := sqlx.GetContext(ctx, s.q, &req, query, uuid.New(), requesterID, levelID, message)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccessRequestExists
	}
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &req, nil
}

func (s *accessStore) ReviewRequest(ctx context.Context, requestID uuid.UUID, status domain.AccessRequestStatus, reviewerID uuid.UUID, note *string) (*domain.AccessRequest, error) {
	if !status.IsDecision() {
		return nil, domain.ErrInvalidTransition
	}

	query := `
		UPDATE level_access_requests
		SET status = $2, reviewed_by = $3, reviewed_at = NOW(), review_note = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + accessRequestColumns

	var req domain.AccessRequest
	err := sqlx.GetContext(ctx, s.q, &req, query, requestID, status, reviewerID, note)
	if err == nil {
		return &req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapWriteError(err)
	}

	// Nothing matched: either the id is unknown or the row left pending.
	if _, getErr := s.GetRequest(ctx, requestID); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrInvalidTransition
}

func (s *accessStore) UpsertGrant(ctx context.Context, userID, levelID, grantedBy uuid.UUID, expiresAt *time.Time, reason string) (*domain.AccessGrant, error) {
	query := `
		INSERT INTO level_access (id, user_id, level_id, granted_by, granted_at, expires_at, reason)
		VALUES ($1, $2, $3, $4, NOW(), $5, $6)
		ON CONFLICT (user_id, level_id) DO UPDATE
		SET granted_by = EXCLUDED.granted_by,
			granted_at = EXCLUDED.granted_at,
			expires_at = EXCLUDED.expires_at,
			reason = EXCLUDED.reason
		RETURNING ` + accessGrantColumns

	var grant domain.AccessGrant
	err := sqlx.GetContext(ctx, s.q, &grant, query, uuid.New(), userID, levelID, grantedBy, expiresAt, reason)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &grant, nil
}

func (s *accessStore) GetRequest(ctx context.Context, id uuid.UUID) (*domain.AccessRequest, error) {
	var req domain.AccessRequest
	query := `SELECT ` + accessRequestColumns + ` FROM level_access_requests WHERE id = $1`

	err := sqlx.GetContext(ctx, s.q, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccessRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *accessStore) ListRequests(ctx context.Context, filter domain.AccessRequestFilter, params domain.PaginationParams) ([]domain.AccessRequest, int64, error) {
	params.Normalize()

	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		conds = append(conds, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if filter.LevelID != nil {
		args = append(args, *filter.LevelID)
		conds = append(conds, fmt.Sprintf("level_id = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := sqlx.GetContext(ctx, s.q, &total, `SELECT COUNT(*) FROM level_access_requests`+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM level_access_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		accessRequestColumns, where, len(args)+1, len(args)+2)

	requests := []domain.AccessRequest{}
	err := sqlx.SelectContext(ctx, s.q, &requests, query, append(args, params.PageSize, params.Offset())...)
	return requests, total, err
}

func (s *accessStore) ListGrants(ctx context.Context, userID uuid.UUID) ([]domain.AccessGrant, error) {
	grants := []domain.AccessGrant{}
	query := `SELECT ` + accessGrantColumns + ` FROM level_access WHERE user_id = $1 ORDER BY granted_at DESC`

	err := sqlx.SelectContext(ctx, s.q, &grants, query, userID)
	return grants, err
}

func (s *accessStore) CountStats(ctx context.Context) (domain.AccessStats, error) {
	var stats domain.AccessStats
	query := `
		SELECT
			(SELECT COUNT(*) FROM level_access_requests WHERE status = 'pending') AS pending_requests,
			(SELECT COUNT(*) FROM level_access WHERE expires_at IS NULL OR expires_at > NOW()) AS active_grants`

	err := sqlx.GetContext(ctx, s.q, &stats, query)
	return stats, err
}

func (s *accessStore) InTx(ctx context.Context, fn func(store AccessStore) error) error {
	if _, ok := s.q.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&accessStore{db: s.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
