package complaint

import (
	"complaintdesk/backend/internal/models"
	"context"
	"strings"
)

// Submission is a new complaint as entered by an agent.
type Submission struct {
	CustomerName   string          `json:"customer_name"`
	CustomerNumber string          `json:"customer_number"`
	TypeID         string          `json:"type_id"`
	FormData       models.FormData `json:"form_data"`
}

// Submitter creates new complaints. The store announces them with an INSERT event.
type Submitter struct {
	Store Store
}

// NewSubmitter creates a new submitter writing through s.
func NewSubmitter(s Store) *Submitter {
	return &Submitter{Store: s}
}

// Submit validates sub against its complaint type and inserts it as Pending.
func (s *Submitter) Submit(ctx context.Context, sub Submission, actor models.Agent) (*models.Complaint, error) {
	name := strings.TrimSpace(sub.CustomerName)
	number := strings.TrimSpace(sub.CustomerNumber)
	if name == "" {
		return nil, &ValidationError{Field: "customer_name", Message: "is required"}
	}
	if number == "" {
		return nil, &ValidationError{Field: "customer_number", Message: "is required"}
	}
	if actor.ID == "" {
		return nil, &ValidationError{Field: "agent", Message: "is required"}
	}

	ctype, err := s.Store.FetchComplaintType(ctx, sub.TypeID)
	if err != nil {
		return nil, err
	}
	if ctype == nil {
		return nil, &ValidationError{Field: "type_id", Message: "unknown complaint type"}
	}

	data := models.FormData{}
	for key, value := range sub.FormData {
		def, ok := ctype.Fields.Get(key)
		if !ok || !def.CollectsInput() {
			return nil, &ValidationError{Field: key, Message: "is not a field of " + ctype.Name}
		}
		value = strings.TrimSpace(value)
		if value != "" && !def.Accepts(value) {
			return nil, &ValidationError{Field: key, Message: "is not one of the allowed options"}
		}
		if value != "" {
			data[key] = value
		}
	}
	for _, def := range ctype.Fields.All() {
		if def.Required() && def.Visible() && def.CollectsInput() && data[def.ID()] == "" {
			return nil, &ValidationError{Field: def.ID(), Message: def.Label() + " is required"}
		}
	}

	return s.Store.InsertComplaint(ctx, &models.Complaint{
		CustomerName:   name,
		CustomerNumber: number,
		TypeID:         ctype.ID,
		FormData:       data,
		Status:         models.StatusPending,
		ReminderCount:  0,
		ReminderLogs:   models.ReminderLogs{},
		AgentID:        actor.ID,
	})
}
