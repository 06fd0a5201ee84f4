package export

import (
	"complaintdesk/backend/internal/duration"
	"complaintdesk/backend/internal/models"
	"strings"
)

// ShareText builds the plain text block copied when a complaint is shared.
// Field lines follow the order of the type's field list; empty values are skipped.
func ShareText(c models.Complaint, tr duration.Translator, lang string) string {
	label := func(key string) string { return tr.GetString(lang, "share."+key) }

	var b strings.Builder
	line := func(key, value string) {
		b.WriteString("\n")
		b.WriteString(label(key))
		b.WriteString(": ")
		b.WriteString(value)
	}

	b.WriteString(label("complaint") + " #" + c.ID)
	line("customer", c.CustomerName)
	line("number", c.CustomerNumber)
	line("type", c.TypeName())
	line("status", StatusLabel(tr, lang, c.Status))

	if c.Type != nil {
		for _, f := range c.Type.Fields.All() {
			if v := c.FormData[f.ID()]; v != "" && f.CollectsInput() {
				b.WriteString("\n" + f.Label() + ": " + v)
			}
		}
	}

	if c.SuspensionReason != "" {
		line("suspension_reason", c.SuspensionReason)
	}
	if c.Status == models.StatusResolved {
		if c.ClosureReason != "" {
			line("closure_reason", c.ClosureReason)
		}
		if c.Resolver != nil {
			line("resolved_by", c.Resolver.DisplayName)
		}
		line("duration", duration.Format(tr, lang, &c.CreatedAt, c.ResolvedAt))
	}
	return b.String()
}
