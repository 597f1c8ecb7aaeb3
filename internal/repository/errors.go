package repository

import (
	"errors"

	"github.com/lib/pq"

	"eduplatform/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == pgForeignKeyViolation
}

// mapWriteError turns constraint violations on the access tables into
// domain errors and passes everything else through.
func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return domain.ErrAccessRequestExists
	case IsForeignKeyViolation(err):
		var pqErr *pq.Error
		errors.As(err, &pqErr)
		if pqErr.Column == "level_id" || pqErr.Constraint == "level_access_requests_level_id_fkey" || pqErr.Constraint == "level_access_level_id_fkey" {
			return domain.ErrLevelNotFound
		}
		return domain.ErrUserNotFound
	default:
		return err
	}
}
