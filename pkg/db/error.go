package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Driver-specific substrings for unique violations, in order: postgres
// (23505), mysql (1062), sqlite and glebarez/sqlite. GORM only translates
// these into gorm.ErrDuplicatedKey when TranslateError is enabled, so we
// match the raw messages as well.
var duplicateKeyMarkers = []string{
	"duplicate key value violates unique constraint",
	"Error 1062",
	"UNIQUE constraint failed",
	"constraint failed: UNIQUE",
}

// IsDuplicateKeyErr reports whether err is a unique constraint violation.
// Callers racing on an insert (session links, order links) use this to fall
// back to a lookup instead of failing.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, marker := range duplicateKeyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
