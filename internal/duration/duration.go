// Package duration renders the time a complaint took to resolve.
package duration

import (
	"fmt"
	"strings"
	"time"
)

// Kind tells a measured duration apart from the two sentinels.
type Kind int

const (
	KindMeasured Kind = iota
	KindUnavailable
	KindLessThanMinute
)

// Label is the decomposed elapsed time between two timestamps.
type Label struct {
	Kind    Kind
	Days    int
	Hours   int
	Minutes int
}

// Translator resolves locale keys. localization.Localizer satisfies it.
type Translator interface {
	GetString(lang, key string) string
}

// Calculate decomposes end-start into days, hours and minutes.
// A missing timestamp or an end before start yields KindUnavailable.
func Calculate(start, end *time.Time) Label {
	if start == nil || end == nil || end.Before(*start) {
		return Label{Kind: KindUnavailable}
	}

	elapsed := end.Sub(*start)
	if elapsed < time.Minute {
		return Label{Kind: KindLessThanMinute}
	}

	total := int(elapsed / time.Minute)
	return Label{
		Kind:    KindMeasured,
		Days:    total / (24 * 60),
		Hours:   (total / 60) % 24,
		Minutes: total % 60,
	}
}

// Render formats the label in lang. Zero components are omitted.
func (l Label) Render(tr Translator, lang string) string {
	switch l.Kind {
	case KindUnavailable:
		return tr.GetString(lang, "duration.unavailable")
	case KindLessThanMinute:
		return tr.GetString(lang, "duration.less_than_minute")
	}

	parts := make([]string, 0, 3)
	for _, c := range []struct {
		n    int
		unit string
	}{
		{l.Days, "day"},
		{l.Hours, "hour"},
		{l.Minutes, "minute"},
	} {
		if c.n == 0 {
			continue
		}
		form := "other"
		if c.n == 1 {
			form = "one"
		}
		unit := tr.GetString(lang, "duration."+c.unit+"."+form)
		parts = append(parts, fmt.Sprintf("%d %s", c.n, unit))
	}
	return strings.Join(parts, tr.GetString(lang, "duration.conjunction"))
}

// Format is Calculate followed by Render.
func Format(tr Translator, lang string, start, end *time.Time) string {
	return Calculate(start, end).Render(tr, lang)
}
