package domain

import (
	"time"

	"github.com/google/uuid"
)

type Level struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	Title        string       `json:"title" db:"title"`
	Description  *string      `json:"description,omitempty" db:"description"`
	Position     int          `json:"position" db:"position"`
	AccessPolicy AccessPolicy `json:"access_policy" db:"access_policy"`
	CreatedBy    *uuid.UUID   `json:"created_by,omitempty" db:"created_by"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

type AccessPolicy string

const (
	PolicyPublic     AccessPolicy = "public"
	PolicyRestricted AccessPolicy = "restricted"
)

func (p AccessPolicy) IsValid() bool {
	return p == PolicyPublic || p == PolicyRestricted
}

func (l *Level) IsPublic() bool {
	return l.AccessPolicy == PolicyPublic
}

type CreateLevelInput struct {
	Title        string       `json:"title" validate:"required,min=1,max=200"`
	Description  *string      `json:"description,omitempty" validate:"omitempty,max=2000"`
	Position     int          `json:"position" validate:"min=0"`
	AccessPolicy AccessPolicy `json:"access_policy" validate:"omitempty,oneof=public restricted"`
}

// UpdateLevelInput carries a partial update; nil fields are left untouched.
type UpdateLevelInput struct {
	Title        *string       `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string       `json:"description,omitempty" validate:"omitempty,max=2000"`
	Position     *int          `json:"position,omitempty" validate:"omitempty,min=0"`
	AccessPolicy *AccessPolicy `json:"access_policy,omitempty" validate:"omitempty,oneof=public restricted"`
}

func (in UpdateLevelInput) IsEmpty() bool {
	return in.Title == nil && in.Description == nil && in.Position == nil && in.AccessPolicy == nil
}

type AccessType string

const (
	AccessTypePublic  AccessType = "public"
	AccessTypeGranted AccessType = "granted"
	AccessTypeLocked  AccessType = "locked"
)

// LevelWithAccess annotates a level with the viewer's access state.
type LevelWithAccess struct {
	Level
	HasAccess  bool       `json:"has_access"`
	AccessType AccessType `json:"access_type"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}
