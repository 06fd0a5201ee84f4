// Package filter derives the visible subset of the complaint view.
package filter

import (
	"complaintdesk/backend/internal/analysis"
	"complaintdesk/backend/internal/models"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// StatusFilter selects complaints by status or by priority bucket.
type StatusFilter string

const (
	StatusAll            StatusFilter = "All"
	StatusHighPriority   StatusFilter = "HighPriority"
	StatusMediumPriority StatusFilter = "MediumPriority"
)

// DateLayout is the calendar-day format of Criteria.Date.
const DateLayout = "2006-01-02"

// ParseStatusFilter accepts "All", a complaint status, or a priority bucket.
// An empty string means All.
func ParseStatusFilter(raw string) (StatusFilter, error) {
	switch StatusFilter(raw) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusHighPriority, StatusMediumPriority:
		return StatusFilter(raw), nil
	}
	if s, err := models.ParseStatus(raw); err == nil {
		return StatusFilter(s), nil
	}
	return "", fmt.Errorf("unknown status filter %q", raw)
}

// Criteria are the active filters. Zero values disable a filter.
type Criteria struct {
	Search string
	Status StatusFilter
	// Date is a calendar day in DateLayout, matched against created_at in UTC.
	Date string
}

// ParseCriteria validates raw query values.
func ParseCriteria(search, status, date string) (Criteria, error) {
	sf, err := ParseStatusFilter(status)
	if err != nil {
		return Criteria{}, err
	}
	if date != "" {
		if _, err := time.Parse(DateLayout, date); err != nil {
			return Criteria{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
	}
	return Criteria{Search: search, Status: sf, Date: date}, nil
}

// Filter returns the complaints matching every active criterion, in cache order.
// The input slice is never modified.
func Filter(cache []models.Complaint, c Criteria) []models.Complaint {
	fold := cases.Fold()
	term := fold.String(c.Search)

	out := make([]models.Complaint, 0, len(cache))
	for _, item := range cache {
		if !matchesSearch(item, c.Search, term, fold) {
			continue
		}
		if !matchesStatus(item, c.Status) {
			continue
		}
		if c.Date != "" && item.CreatedAt.UTC().Format(DateLayout) != c.Date {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesSearch(item models.Complaint, raw, folded string, fold cases.Caser) bool {
	if raw == "" {
		return true
	}
	if strings.Contains(fold.String(item.CustomerName), folded) {
		return true
	}
	// Номер клієнта і ID порівнюються без нормалізації.
	return strings.Contains(item.CustomerNumber, raw) || strings.Contains(item.ID, raw)
}

func matchesStatus(item models.Complaint, sf StatusFilter) bool {
	switch sf {
	case "", StatusAll:
		return true
	case StatusHighPriority:
		return analysis.IsHighPriority(item.ReminderCount)
	case StatusMediumPriority:
		return analysis.IsMediumPriority(item.ReminderCount)
	default:
		return string(item.Status) == string(sf)
	}
}
