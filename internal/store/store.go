// Package store is the persistence layer for users, refresh tokens and todos.
package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("store: record not found")
	ErrEmailExists = errors.New("store: email already registered")
)

// isUniqueViolation recognises unique index failures from both drivers. gorm's
// TranslateError covers postgres and sqlite, the string match covers
// connections opened without it.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
