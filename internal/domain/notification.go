package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Data      json.RawMessage  `json:"data,omitempty" db:"data"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	ReadAt    *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

type NotificationType string

const (
	NotifLesson       NotificationType = "lesson"
	NotifAchievement  NotificationType = "achievement"
	NotifReminder     NotificationType = "reminder"
	NotifAnnouncement NotificationType = "announcement"
	NotifAssignment   NotificationType = "assignment"

	NotifAccessRequested NotificationType = "access_requested"
	NotifAccessApproved  NotificationType = "access_approved"
	NotifAccessRejected  NotificationType = "access_rejected"
	NotifAccessGranted   NotificationType = "access_granted"
)

// IsAccessEvent reports whether t belongs to the level access workflow.
func (t NotificationType) IsAccessEvent() bool {
	switch t {
	case NotifAccessRequested, NotifAccessApproved, NotifAccessRejected, NotifAccessGranted:
		return true
	default:
		return false
	}
}
