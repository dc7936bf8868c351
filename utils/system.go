// agora/utils/system.go
package utils

import (
	"time"
)

// GetSQLTime returns the current time in UTC for database storage.
func GetSQLTime() time.Time {
	return time.Now().UTC()
}

// ClockTime formats a stored timestamp as local "HH:MM" for the chat feed.
func ClockTime(t time.Time) string {
	return t.In(time.Local).Format("15:04")
}
