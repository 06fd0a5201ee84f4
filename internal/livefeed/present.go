package livefeed

import (
	"complaintdesk/backend/internal/analysis"
	"complaintdesk/backend/internal/duration"
	"complaintdesk/backend/internal/models"
)

// Present attaches the derived display fields to a complaint.
func Present(c models.Complaint, tr duration.Translator, lang string) models.ComplaintView {
	created := c.CreatedAt
	return models.ComplaintView{
		Complaint:    c,
		StatusLabel:  tr.GetString(lang, "status."+string(c.Status)),
		PriorityTier: string(analysis.PriorityTier(c.ReminderCount)),
		Duration:     duration.Format(tr, lang, &created, c.ResolvedAt),
	}
}

// PresentAll presents every complaint, keeping order. The result is never nil.
func PresentAll(cs []models.Complaint, tr duration.Translator, lang string) []models.ComplaintView {
	out := make([]models.ComplaintView, 0, len(cs))
	for _, c := range cs {
		out = append(out, Present(c, tr, lang))
	}
	return out
}
