package helpers

import (
	"database/sql"
	"time"
)

// GetContentNullString converts a string value to sql.NullString.
// If the string is empty, returns an empty NullString.
func GetContentNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// NullTimePtr converts sql.NullTime to a *time.Time, nil when NULL.
func NullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
