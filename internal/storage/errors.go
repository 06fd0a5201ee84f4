package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a write targets a complaint that does not exist.
var ErrNotFound = errors.New("complaint not found")

// RemoteWriteError is returned when the store rejects an insert or update.
// Nothing is retried; the caller decides whether to surface it or retry.
type RemoteWriteError struct {
	Op  string // "insert", "update", "delete"
	ID  string
	Err error
}

func (e *RemoteWriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s of complaint %s failed: %v", e.Op, e.ID, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

// RemoteReadError is returned when a fetch against the store fails.
type RemoteReadError struct {
	ID  string // empty for collection reads
	Err error
}

func (e *RemoteReadError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("remote read failed: %v", e.Err)
	}
	return fmt.Sprintf("remote read of complaint %s failed: %v", e.ID, e.Err)
}

func (e *RemoteReadError) Unwrap() error { return e.Err }

// SubscriptionError reports that the change channel could not be established or dropped.
type SubscriptionError struct {
	Channel string
	Err     error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("change channel %s unavailable: %v", e.Channel, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }
