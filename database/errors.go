package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/yttext/errors"
)

// IsConnectionError checks if a database error is a connection error
// that might be resolved by retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"database is locked",
		"driver: bad connection",
		"sql: database is closed",
	} {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsNotFoundError checks if the error is a GORM record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// FromDatabase converts a database error to an AppError for resource.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if app, ok := apperrors.AsAppError(err); ok {
		return app
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(resource, "").WithCause(err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Conflict(resource + " already exists").WithCause(err)
	case IsConnectionError(err):
		return apperrors.ServiceUnavailable("database").WithCause(err)
	default:
		return apperrors.DatabaseError(err)
	}
}
