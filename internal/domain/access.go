package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccessRequest struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	RequesterID uuid.UUID           `json:"requester_id" db:"requester_id"`
	LevelID     uuid.UUID           `json:"level_id" db:"level_id"`
	Message     string              `json:"message" db:"message"`
	Status      AccessRequestStatus `json:"status" db:"status"`
	ReviewNote  *string             `json:"review_note,omitempty" db:"review_note"`
	ReviewedBy  *uuid.UUID          `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt  *time.Time          `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`

	Requester *User  `json:"requester,omitempty" db:"-"`
	Level     *Level `json:"level,omitempty" db:"-"`
}

type AccessRequestStatus string

const (
	StatusPending  AccessRequestStatus = "pending"
	StatusApproved AccessRequestStatus = "approved"
	StatusRejected AccessRequestStatus = "rejected"
)

// IsDecision reports whether s is a terminal review outcome.
func (s AccessRequestStatus) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

type AccessGrant struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	LevelID   uuid.UUID  `json:"level_id" db:"level_id"`
	GrantedBy uuid.UUID  `json:"granted_by" db:"granted_by"`
	GrantedAt time.Time  `json:"granted_at" db:"granted_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	Reason    string     `json:"reason" db:"reason"`
}

// IsActive reports whether the grant still confers access at now.
func (g *AccessGrant) IsActive(now time.Time) bool {
	if g == nil {
		return false
	}
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

const (
	GrantReasonApprovedRequest = "approved_request"
	GrantReasonManual          = "manual"
)

type AccessRequestFilter struct {
	Status      *AccessRequestStatus
	RequesterID *uuid.UUID
	LevelID     *uuid.UUID
}

type CreateAccessRequestInput struct {
	LevelID uuid.UUID `json:"level_id" validate:"required"`
	Message *string   `json:"message,omitempty" validate:"omitempty,max=1000"`
}

type ReviewAccessRequestInput struct {
	Decision AccessRequestStatus `json:"decision" validate:"required,oneof=approved rejected"`
	Feedback *string             `json:"feedback,omitempty" validate:"omitempty,max=1000"`
}

type GrantAccessInput struct {
	UserID    uuid.UUID  `json:"user_id" validate:"required"`
	LevelID   uuid.UUID  `json:"level_id" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    *string    `json:"reason,omitempty" validate:"omitempty,max=200"`
}

// Reviewer is the acting user of a review, as resolved by the caller.
type Reviewer struct {
	ID        uuid.UUID
	CanReview bool
}

type ReviewResult struct {
	Request *AccessRequest `json:"request"`
	Grant   *AccessGrant   `json:"grant,omitempty"`
}

type AccessStats struct {
	PendingRequests int64 `json:"pending_requests" db:"pending_requests"`
	ActiveGrants    int64 `json:"active_grants" db:"active_grants"`
}
