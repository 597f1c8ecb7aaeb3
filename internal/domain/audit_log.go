package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	UserName   *string         `json:"user_name,omitempty" db:"user_name"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	OldValue   json.RawMessage `json:"old_value,omitempty" db:"old_value"`
	NewValue   json.RawMessage `json:"new_value,omitempty" db:"new_value"`
	IPAddress  *string         `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string         `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

type CreateAuditLogInput struct {
	UserID     uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	OldValue   any
	NewValue   any
	IPAddress  *string
	UserAgent  *string
}

const (
	AuditRequestLevelAccess = "REQUEST_LEVEL_ACCESS"
	AuditApproveAccess      = "APPROVE_ACCESS_REQUEST"
	AuditRejectAccess       = "REJECT_ACCESS_REQUEST"
	AuditGrantLevelAccess   = "GRANT_LEVEL_ACCESS"
	AuditCreateLevel        = "CREATE_LEVEL"
	AuditUpdateLevel        = "UPDATE_LEVEL"

	EntityAccessRequest = "ACCESS_REQUEST"
	EntityLevelAccess   = "LEVEL_ACCESS"
	EntityLevel         = "LEVEL"
)

// RequestMeta carries client details recorded alongside audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

func (m *RequestMeta) Apply(input *CreateAuditLogInput) {
	if m == nil {
		return
	}
	if m.IPAddress != "" {
		ip := m.IPAddress
		input.IPAddress = &ip
	}
	if m.UserAgent != "" {
		ua := m.UserAgent
		input.UserAgent = &ua
	}
}
