package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventKind is the kind of row change reported by the store's change channel.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// ChangeEvent is one change notification for a single complaint.
// Only the id is trusted; the full record is always fetched before use.
type ChangeEvent struct {
	Kind EventKind `json:"kind"`
	ID   string    `json:"id"`
}

// DecodeChangeEvent parses a change channel payload.
func DecodeChangeEvent(payload string) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	ev.Kind = EventKind(strings.ToUpper(string(ev.Kind)))
	switch ev.Kind {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return ChangeEvent{}, fmt.Errorf("decode change event: unknown kind %q", ev.Kind)
	}
	if ev.ID == "" {
		return ChangeEvent{}, fmt.Errorf("decode change event: missing id")
	}
	return ev, nil
}

// Encode returns the channel payload for the event.
func (e ChangeEvent) Encode() string {
	b, _ := json.Marshal(e)
	return string(b)
}
