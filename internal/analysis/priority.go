// Package analysis derives display classifications from complaint data.
// Nothing computed here is ever persisted.
package analysis

import "complaintdesk/backend/internal/config"

// Tier is the priority classification of a complaint.
type Tier string

const (
	TierNone   Tier = "none"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// IsHighPriority reports whether reminderCount reaches the high threshold.
func IsHighPriority(reminderCount int) bool {
	return reminderCount >= config.HighPriorityReminders
}

// IsMediumPriority reports whether reminderCount reaches the medium threshold.
// It is true for every high priority count as well.
func IsMediumPriority(reminderCount int) bool {
	return reminderCount >= config.MediumPriorityReminders
}

// PriorityTier returns the most significant tier reached by reminderCount.
func PriorityTier(reminderCount int) Tier {
	switch {
	case IsHighPriority(reminderCount):
		return TierHigh
	case IsMediumPriority(reminderCount):
		return TierMedium
	default:
		return TierNone
	}
}
