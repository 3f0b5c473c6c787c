package helpers

import (
	"database/sql"
	"time"
)

// NullID converts a foreign key to sql.NullInt64.
// Zero and negative ids are stored as NULL.
func NullID(id int64) sql.NullInt64 {
	if id <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

// DateOnly strips the clock so DATE columns compare on the calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
