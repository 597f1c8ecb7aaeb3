package domain

import "errors"

var (
	ErrAccessRequestExists   = errors.New("access request or grant already exists")
	ErrAccessRequestNotFound = errors.New("access request not found")
	ErrInvalidTransition     = errors.New("access request is not pending")
	ErrLevelNotFound         = errors.New("level not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrNotificationNotFound  = errors.New("notification not found")
)
