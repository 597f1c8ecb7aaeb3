package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"eduplatform/internal/domain"
)

func TestMapWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "pending unique index",
			err:  &pq.Error{Code: "23505", Constraint: "uq_level_access_requests_pending"},
			want: domain.ErrAccessRequestExists,
		},
		{
			name: "wrapped unique violation",
			err:  fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}),
			want: domain.ErrAccessRequestExists,
		},
		{
			name: "unknown level",
			err:  &pq.Error{Code: "23503", Constraint: "level_access_requests_level_id_fkey"},
			want: domain.ErrLevelNotFound,
		},
		{
			name: "unknown user",
			err:  &pq.Error{Code: "23503", Constraint: "level_access_user_id_fkey"},
			want: domain.ErrUserNotFound,
		},
		{
			name: "unknown reviewer",
			err:  &pq.Error{Code: "23503", Constraint: "level_access_requests_reviewed_by_fkey"},
			want: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapWriteError(tt.err), tt.want)
		})
	}
}

func TestMapWriteErrorPassesThrough(t *testing.T) {
	cause := errors.New("connection reset")
	assert.Same(t, cause, mapWriteError(cause))
	assert.NoError(t, mapWriteError(nil))

	serialization := &pq.Error{Code: "40001"}
	assert.Equal(t, error(serialization), mapWriteError(serialization))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(errors.New("23505")))
	assert.False(t, IsUniqueViolation(nil))
}
