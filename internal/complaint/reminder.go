package complaint

import (
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"log"
	"time"
)

// ReminderTracker records customer follow-ups on a complaint.
//
// Increment is a read-modify-write of reminder_count and reminder_logs with no
// version check. Two concurrent increments can both read count N and both write
// N+1, losing one reminder. This is accepted: the pair is always written together,
// so count and log length stay equal for whichever write lands last.
type ReminderTracker struct {
	Store Store
	Now   func() time.Time
}

// NewReminderTracker creates a new tracker writing through s.
func NewReminderTracker(s Store) *ReminderTracker {
	return &ReminderTracker{Store: s, Now: time.Now}
}

// Increment appends a reminder by actor and bumps the count in one combined update.
func (r *ReminderTracker) Increment(ctx context.Context, id string, actor models.Agent) error {
	if actor.DisplayName == "" {
		return &ValidationError{Field: "agent", Message: "a reminder needs the acting agent's name"}
	}

	current, err := r.Store.FetchComplaint(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrComplaintNotFound
	}

	at := r.Now()
	if latest := current.ReminderLogs.Latest(); at.Before(latest) {
		at = latest
	}
	logs := current.ReminderLogs.Append(models.ReminderLog{AgentName: actor.DisplayName, Timestamp: at})

	count := current.ReminderCount + 1
	if count != len(logs) {
		log.Printf("WARNING: Complaint %s had reminder_count %d with %d logs; writing %d", id, current.ReminderCount, len(current.ReminderLogs), len(logs))
		count = len(logs)
	}

	if _, err := r.Store.UpdateComplaint(ctx, id, models.ComplaintPatch{
		ReminderCount: &count,
		ReminderLogs:  logs,
	}); err != nil {
		var read *storage.RemoteReadError
		if !errors.As(err, &read) {
			return err
		}
		log.Printf("WARNING: Complaint %s reminder written but not re-read: %v", id, err)
	}
	log.Printf("INFO: Complaint %s reminder #%d by %s", id, count, actor.DisplayName)
	return nil
}
