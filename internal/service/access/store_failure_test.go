package access_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/domain"
	"eduplatform/internal/pkg/apperror"
	"eduplatform/internal/repository"
	"eduplatform/internal/service/access"
)

// faultyStore wraps a working store and fails selected operations, both on
// the outer store and on the store handed to InTx.
type faultyStore struct {
	repository.AccessStore
	findGrantErr error
	createErr    error
	reviewErr    error
	upsertErr    error
}

func (s *faultyStore) FindGrant(ctx context.Context, userID, levelID uuid.UUID) (*domain.AccessGrant, error) {
	if s.findGrantErr != nil {
		return nil, s.findGrantErr
	}
	return s.AccessStore.FindGrant(ctx, userID, levelID)
}

func (s *faultyStore) CreateRequest(ctx context.Context, requesterID, levelID uuid.UUID, message string) (*domain.AccessRequest, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.AccessStore.CreateRequest(ctx, requesterID, levelID, message)
}

func (s *faultyStore) ReviewRequest(ctx context.Context, requestID uuid.UUID, status domain.AccessRequestStatus, reviewerID uuid.UUID, note *string) (*domain.AccessRequest, error) {
	if s.reviewErr != nil {
		return nil, s.reviewErr
	}
	return s.AccessStore.ReviewRequest(ctx, requestID, status, reviewerID, note)
}

func (s *faultyStore) UpsertGrant(ctx context.Context, userID, levelID, grantedBy uuid.UUID, expiresAt *time.Time, reason string) (*domain.AccessGrant, error) {
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	return s.AccessStore.UpsertGrant(ctx, userID, levelID, grantedBy, expiresAt, reason)
}

func (s *faultyStore) InTx(ctx context.Context, fn func(store repository.AccessStore) error) error {
	return s.AccessStore.InTx(ctx, func(tx repository.AccessStore) error {
		inner := *s
		inner.AccessStore = tx
		return fn(&inner)
	})
}

func (f *fixture) serviceOver(store repository.AccessStore) access.Service {
	return access.NewService(store, f.levels, f.users, f.audit, f.notifier, access.Options{})
}

func assertStoreError(t *testing.T, err, cause error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, apperror.CodeStore, apperror.CodeOf(err))
	assert.ErrorIs(t, err, cause)
}

func TestRequestAccess_StoreFailuresAbort(t *testing.T) {
	cause := errors.New("connection reset by peer")

	t.Run("grant lookup", func(t *testing.T) {
		f := newFixture(t)
		svc := f.serviceOver(&faultyStore{AccessStore: f.store, findGrantErr: cause})

		_, err := svc.RequestAccess(context.Background(), f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
		assertStoreError(t, err, cause)

		pending, err := f.store.FindPendingRequest(context.Background(), f.student.ID, f.level.ID)
		require.NoError(t, err)
		assert.Nil(t, pending)
		assert.Empty(t, f.notifier.to(f.teacher.ID))
	})

	t.Run("insert", func(t *testing.T) {
		f := newFixture(t)
		svc := f.serviceOver(&faultyStore{AccessStore: f.store, createErr: cause})

		_, err := svc.RequestAccess(context.Background(), f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
		assertStoreError(t, err, cause)
		assert.Empty(t, f.notifier.to(f.teacher.ID))
		assert.Empty(t, f.notifier.to(f.admin.ID))
	})
}

func TestReviewAccess_StoreFailuresLeaveRequestPending(t *testing.T) {
	cause := errors.New("could not serialize access")

	tests := []struct {
		name  string
		store func(inner repository.AccessStore) *faultyStore
	}{
		{"review update", func(inner repository.AccessStore) *faultyStore {
			return &faultyStore{AccessStore: inner, reviewErr: cause}
		}},
		{"grant upsert rolls back approval", func(inner repository.AccessStore) *faultyStore {
			return &faultyStore{AccessStore: inner, upsertErr: cause}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			req, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
			require.NoError(t, err)

			svc := f.serviceOver(tt.store(f.store))
			_, err = svc.ReviewAccess(ctx, req.ID, f.reviewer(), domain.ReviewAccessRequestInput{Decision: domain.StatusApproved}, nil)
			assertStoreError(t, err, cause)

			stored, err := f.store.GetRequest(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusPending, stored.Status)
			assert.Nil(t, stored.ReviewedBy)

			grant, err := f.store.FindGrant(ctx, f.student.ID, f.level.ID)
			require.NoError(t, err)
			assert.Nil(t, grant)
			assert.Empty(t, f.notifier.to(f.student.ID))

			// The request is still reviewable once the store recovers.
			result, err := f.svc.ReviewAccess(ctx, req.ID, f.reviewer(), domain.ReviewAccessRequestInput{Decision: domain.StatusApproved}, nil)
			require.NoError(t, err)
			assert.NotNil(t, result.Grant)
		})
	}
}

func TestReviewAccess_UnknownReviewerIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.RequestAccess(ctx, f.student.ID, domain.CreateAccessRequestInput{LevelID: f.level.ID}, nil)
	require.NoError(t, err)

	svc := f.serviceOver(&faultyStore{AccessStore: f.store, reviewErr: domain.ErrUserNotFound})
	_, err = svc.ReviewAccess(ctx, req.ID, domain.Reviewer{ID: uuid.New(), CanReview: true}, domain.ReviewAccessRequestInput{Decision: domain.StatusRejected}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}
