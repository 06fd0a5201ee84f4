// Package complaint provides the core logic for changing complaints: lifecycle
// transitions, reminder escalation and submission of new complaints.
//
// None of the services here touch the local view. Every change is written to
// the store, and the view picks it up from the store's change channel.
package complaint

import (
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

// Store is the part of the store client the complaint services write through.
type Store interface {
	FetchComplaint(ctx context.Context, id string) (*models.Complaint, error)
	UpdateComplaint(ctx context.Context, id string, patch models.ComplaintPatch) (*models.Complaint, error)
	InsertComplaint(ctx context.Context, c *models.Complaint) (*models.Complaint, error)
	FetchComplaintType(ctx context.Context, id string) (*models.ComplaintType, error)
}

// transitions is the lifecycle graph. Resolved has no outgoing edges.
var transitions = map[models.Status][]models.Status{
	models.StatusPending:    {models.StatusProcessing, models.StatusSuspended, models.StatusResolved},
	models.StatusProcessing: {models.StatusSuspended, models.StatusResolved},
	models.StatusSuspended:  {models.StatusSuspended, models.StatusResolved},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to models.Status) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses a complaint in from can move to.
func AllowedTargets(from models.Status) []models.Status {
	return append([]models.Status(nil), transitions[from]...)
}

// RequiresReason reports whether entering target needs a non-blank reason.
func RequiresReason(target models.Status) bool {
	return target == models.StatusSuspended || target == models.StatusResolved
}

// StateMachine validates and issues lifecycle transitions.
type StateMachine struct {
	Store Store
	Now   func() time.Time
}

// NewStateMachine creates a new state machine writing through s.
func NewStateMachine(s Store) *StateMachine {
	return &StateMachine{Store: s, Now: time.Now}
}

// Transition moves complaint id to target. Reason is required (after trimming) for
// Suspended and Resolved; actor is required for Resolved. Input errors are reported
// before the store is contacted.
func (m *StateMachine) Transition(ctx context.Context, id string, target models.Status, reason string, actor *models.Agent) error {
	if _, err := models.ParseStatus(string(target)); err != nil {
		return &ValidationError{Field: "status", Message: err.Error()}
	}
	reason = strings.TrimSpace(reason)
	if RequiresReason(target) && reason == "" {
		return &ValidationError{Field: "reason", Message: "a reason is required to move a complaint to " + string(target)}
	}
	if target == models.StatusResolved && (actor == nil || actor.ID == "") {
		return &ValidationError{Field: "agent", Message: "resolving a complaint requires the acting agent"}
	}

	current, err := m.Store.FetchComplaint(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrComplaintNotFound
	}
	if !CanTransition(current.Status, target) {
		return &IllegalTransitionError{From: current.Status, To: target}
	}

	from := current.Status
	patch := models.ComplaintPatch{ExpectStatus: &from, Status: &target}
	empty := ""
	switch target {
	case models.StatusSuspended:
		patch.SuspensionReason = &reason
	case models.StatusResolved:
		resolvedAt := m.Now()
		// resolved_at never precedes created_at, even with a skewed clock.
		if resolvedAt.Before(current.CreatedAt) {
			resolvedAt = current.CreatedAt
		}
		resolvedBy := actor.ID
		patch.ClosureReason = &reason
		patch.ResolvedBy = &resolvedBy
		patch.ResolvedAt = &resolvedAt
		patch.SuspensionReason = &empty
	case models.StatusProcessing:
		patch.SuspensionReason = &empty
	}

	if _, err := m.Store.UpdateComplaint(ctx, id, patch); err != nil {
		if errors.Is(err, models.ErrStatusConflict) {
			return m.conflict(ctx, id, target, err)
		}
		var read *storage.RemoteReadError
		if !errors.As(err, &read) {
			return err
		}
		// Запис уже виконано; представлення отримає його з каналу змін.
		log.Printf("WARNING: Complaint %s moved but not re-read: %v", id, err)
	}
	log.Printf("INFO: Complaint %s moved %s -> %s", id, current.Status, target)
	return nil
}

// conflict explains a write that lost the race against another transition.
func (m *StateMachine) conflict(ctx context.Context, id string, target models.Status, cause error) error {
	latest, err := m.Store.FetchComplaint(ctx, id)
	if err != nil {
		return cause
	}
	if latest == nil {
		return ErrComplaintNotFound
	}
	if !CanTransition(latest.Status, target) {
		return &IllegalTransitionError{From: latest.Status, To: target}
	}
	return cause
}
