package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReminderLog records one customer follow-up. Entries are never edited once appended.
type ReminderLog struct {
	AgentName string    `json:"agent_name"`
	Timestamp time.Time `json:"timestamp"`
}

// ReminderLogs is the append-only reminder history stored as a JSON column.
type ReminderLogs []ReminderLog

// Append returns a new slice with entry at the end, leaving l untouched.
func (l ReminderLogs) Append(entry ReminderLog) ReminderLogs {
	out := make(ReminderLogs, len(l), len(l)+1)
	copy(out, l)
	return append(out, entry)
}

// Latest returns the greatest timestamp in the log, or the zero time for an empty log.
func (l ReminderLogs) Latest() time.Time {
	var latest time.Time
	for _, entry := range l {
		if entry.Timestamp.After(latest) {
			latest = entry.Timestamp
		}
	}
	return latest
}

// Value implements driver.Valuer.
func (l ReminderLogs) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]ReminderLog(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *ReminderLogs) Scan(src interface{}) error {
	data, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("reminder logs: %w", err)
	}
	out := ReminderLogs{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("reminder logs: %w", err)
		}
	}
	*l = out
	return nil
}
