package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "duplicate key value violates unique constraint"): // postgres 23505
		return true
	case strings.Contains(msg, "Error 1062"): // mysql
		return true
	case strings.Contains(msg, "UNIQUE constraint failed"): // sqlite
		return true
	}
	return false
}

// InsertIgnore returns the dialect's "insert unless the key exists" prefix
// and suffix for raw INSERT statements.
func InsertIgnore(db *gorm.DB) (prefix, suffix string) {
	switch db.Dialector.Name() {
	case "mysql":
		return "INSERT IGNORE INTO", ""
	case "postgres":
		return "INSERT INTO", " ON CONFLICT DO NOTHING"
	default:
		return "INSERT OR IGNORE INTO", ""
	}
}

// ForUpdate returns the row-lock suffix for SELECT statements. SQLite
// serialises writers itself and has no such clause.
func ForUpdate(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return " FOR UPDATE"
	default:
		return ""
	}
}
