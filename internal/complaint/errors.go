package complaint

import (
	"complaintdesk/backend/internal/models"
	"errors"
	"fmt"
)

// ErrComplaintNotFound is returned when the target complaint does not exist in the store.
var ErrComplaintNotFound = errors.New("complaint not found")

// ValidationError is returned for bad input, before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IllegalTransitionError is returned when a transition is not an edge of the lifecycle graph.
type IllegalTransitionError struct {
	From models.Status
	To   models.Status
}

func (e *IllegalTransitionError) Error() string {
	if e.From == models.StatusResolved {
		return fmt.Sprintf("complaint is resolved; cannot move to %s", e.To)
	}
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}
