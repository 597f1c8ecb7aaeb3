// Package memory holds mutex-guarded stores that satisfy the repository
// interfaces without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"eduplatform/internal/domain"
	"eduplatform/internal/repository"
)

type grantKey struct {
	userID  uuid.UUID
	levelID uuid.UUID
}

type tables struct {
	requests map[uuid.UUID]domain.AccessRequest
	grants   map[grantKey]domain.AccessGrant
}

func (t tables) clone() tables {
	c := tables{
		requests: make(map[uuid.UUID]domain.AccessRequest, len(t.requests)),
		grants:   make(map[grantKey]domain.AccessGrant, len(t.grants)),
	}
	for k, v := range t.requests {
		c.requests[k] = v
	}
	for k, v := range t.grants {
		c.grants[k] = v
	}
	return c
}

// AccessStore is an in-memory repository.AccessStore. A single mutex
// serializes every operation, which gives the same check-and-insert
// atomicity the SQL store gets from its constraints.
type AccessStore struct {
	mutex sync.Mutex
	t     tables
	now   func() time.Time
}

var _ repository.AccessStore = (*AccessStore)(nil)

func NewAccessStore() *AccessStore {
	return &AccessStore{
		t: tables{
			requests: make(map[uuid.UUID]domain.AccessRequest),
			grants:   make(map[grantKey]domain.AccessGrant),
		},
		now: time.Now,
	}
}

// WithClock replaces the time source. Used by tests that exercise expiry.
func (s *AccessStore) WithClock(now func() time.Time) *AccessStore {
	s.now = now
	return s
}

func (s *AccessStore) FindPendingRequest(ctx context.Context, requesterID, levelID uuid.UUID) (*domain.AccessRequest, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.findPending(requesterID, levelID), nil
}

func (s *AccessStore) FindGrant(ctx context.Context, userID, levelID uuid.UUID) (*domain.AccessGrant, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.findLiveGrant(userID, levelID), nil
}

func (s *AccessStore) CreateRequest(ctx context.Context, requesterID, levelID uuid.UUID, message string) (*domain.AccessRequest, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.createRequest(requesterID, levelID, message)
}

func (s *AccessStore) ReviewRequest(ctx context.Context, requestID uuid.UUID, status domain.AccessRequestStatus, reviewerID uuid.UUID, note *string) (*domain.AccessRequest, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.reviewRequest(requestID, status, reviewerID, note)
}

func (s *AccessStore) UpsertGrant(ctx context.Context, userID, levelID, grantedBy uuid.UUID, expiresAt *time.Time, reason string) (*domain.AccessGrant, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.upsertGrant(userID, levelID, grantedBy, expiresAt, reason), nil
}

func (s *AccessStore) GetRequest(ctx context.Context, id uuid.UUID) (*domain.AccessRequest, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.getRequest(id)
}

func (s *AccessStore) ListRequests(ctx context.Context, filter domain.AccessRequestFilter, params domain.PaginationParams) ([]domain.AccessRequest, int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	requests, total := s.listRequests(filter, params)
	return requests, total, nil
}

func (s *AccessStore) ListGrants(ctx context.Context, userID uuid.UUID) ([]domain.AccessGrant, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.listGrants(userID), nil
}

func (s *AccessStore) CountStats(ctx context.Context) (domain.AccessStats, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.countStats(), nil
}

// InTx holds the lock for the whole of fn and restores the previous
// tables when fn fails.
func (s *AccessStore) InTx(ctx context.Context, fn func(store repository.AccessStore) error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	snapshot := s.t.clone()
	if err := fn(&txStore{s: s}); err != nil {
		s.t = snapshot
		return err
	}
	return nil
}

func (s *AccessStore) findPending(requesterID, levelID uuid.UUID) *domain.AccessRequest {
	for _, r := range s.t.requests {
		if r.RequesterID == requesterID && r.LevelID == levelID && r.Status == domain.StatusPending {
			req := r
			return &req
		}
	}
	return nil
}

func (s *AccessStore) findLiveGrant(userID, levelID uuid.UUID) *domain.AccessGrant {
	g, ok := s.t.grants[grantKey{userID, levelID}]
	if !ok || !g.IsActive(s.now()) {
		return nil
	}
	return &g
}

func (s *AccessStore) createRequest(requesterID, levelID uuid.UUID, message string) (*domain.AccessRequest, error) {
	if s.findPending(requesterID, levelID) != nil || s.findLiveGrant(requesterID, levelID) != nil {
		return nil, domain.ErrAccessRequestExists
	}

	now := s.now()
	req := domain.AccessRequest{
		ID:          uuid.New(),
		RequesterID: requesterID,
		LevelID:     levelID,
		Message:     message,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.t.requests[req.ID] = req
	return &req, nil
}

func (s *AccessStore) reviewRequest(requestID uuid.UUID, status domain.AccessRequestStatus, reviewerID uuid.UUID, note *string) (*domain.AccessRequest, error) {
	req, ok := s.t.requests[requestID]
	if !ok {
		return nil, domain.ErrAccessRequestNotFound
	}
	if !status.IsDecision() || req.Status != domain.StatusPending {
		return nil, domain.ErrInvalidTransition
	}

	now := s.now()
	reviewer := reviewerID
	req.Status = status
	req.ReviewedBy = &reviewer
	req.ReviewedAt = &now
	req.ReviewNote = note
	req.UpdatedAt = now
	s.t.requests[requestID] = req
	return &req, nil
}

func (s *AccessStore) upsertGrant(userID, levelID, grantedBy uuid.UUID, expiresAt *time.Time, reason string) *domain.AccessGrant {
	key := grantKey{userID, levelID}
	grant, ok := s.t.grants[key]
	if !ok {
		grant = domain.AccessGrant{ID: uuid.New(), UserID: userID, LevelID: levelID}
	}
	grant.GrantedBy = grantedBy
	grant.GrantedAt = s.now()
	grant.ExpiresAt = expiresAt
	grant.Reason = reason
	s.t.grants[key] = grant
	return &grant
}

func (s *AccessStore) getRequest(id uuid.UUID) (*domain.AccessRequest, error) {
	req, ok := s.t.requests[id]
	if !ok {
		return nil, domain.ErrAccessRequestNotFound
	}
	return &req, nil
}

func (s *AccessStore) listRequests(filter domain.AccessRequestFilter, params domain.PaginationParams) ([]domain.AccessRequest, int64) {
	params.Normalize()

	matched := []domain.AccessRequest{}
	for _, r := range s.t.requests {
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.RequesterID != nil && r.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.LevelID != nil && r.LevelID != *filter.LevelID {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	start := params.Offset()
	if start >= len(matched) {
		return []domain.AccessRequest{}, total
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total
}

func (s *AccessStore) listGrants(userID uuid.UUID) []domain.AccessGrant {
	grants := []domain.AccessGrant{}
	for k, g := range s.t.grants {
		if k.userID == userID {
			grants = append(grants, g)
		}
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].GrantedAt.After(grants[j].GrantedAt) })
	return grants
}

func (s *AccessStore) countStats() domain.AccessStats {
	var stats domain.AccessStats
	for _, r := range s.t.requests {
		if r.Status == domain.StatusPending {
			stats.PendingRequests++
		}
	}
	now := s.now()
	for _, g := range s.t.grants {
		if g.IsActive(now) {
			stats.ActiveGrants++
		}
	}
	return stats
}

// txStore runs against the parent's tables while InTx holds the lock.
type txStore struct {
	s *AccessStore
}

func (t *txStore) FindPendingRequest(ctx context.Context, requesterID, levelID uuid.UUID) (*domain.AccessRequest, error) {
	return t.s.findPending(requesterID, levelID), nil
}

func (t *txStore) FindGrant(ctx context.Context, userID, levelID uuid.UUID) (*domain.AccessGrant, error) {
	return t.s.findLiveGrant(userID, levelID), nil
}

func (t *txStore) CreateRequest(ctx context.Context, requesterID, levelID uuid.UUID, message string) (*domain.AccessRequest, error) {
	return t.s.createRequest(requesterID, levelID, message)
}

func (t *txStore) ReviewRequest(ctx context.Context, requestID uuid.UUID, status domain.AccessRequestStatus, reviewerID uuid.UUID, note *string) (*domain.AccessRequest, error) {
	return t.s.reviewRequest(requestID, status, reviewerID, note)
}

func (t *txStore) UpsertGrant(ctx context.Context, userID, levelID, grantedBy uuid.UUID, expiresAt *time.Time, reason string) (*domain.AccessGrant, error) {
	return t.s.upsertGrant(userID, levelID, grantedBy, expiresAt, reason), nil
}

func (t *txStore) GetRequest(ctx context.Context, id uuid.UUID) (*domain.AccessRequest, error) {
	return t.s.getRequest(id)
}

func (t *txStore) ListRequests(ctx context.Context, filter domain.AccessRequestFilter, params domain.PaginationParams) ([]domain.AccessRequest, int64, error) {
	requests, total := t.s.listRequests(filter, params)
	return requests, total, nil
}

func (t *txStore) ListGrants(ctx context.Context, userID uuid.UUID) ([]domain.AccessGrant, error) {
	return t.s.listGrants(userID), nil
}

func (t *txStore) CountStats(ctx context.Context) (domain.AccessStats, error) {
	return t.s.countStats(), nil
}

func (t *txStore) InTx(ctx context.Context, fn func(store repository.AccessStore) error) error {
	return fn(t)
}
