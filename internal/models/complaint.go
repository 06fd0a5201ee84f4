package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusSuspended  Status = "Suspended"
	StatusResolved   Status = "Resolved"
)

// Statuses lists every lifecycle state in display order.
var Statuses = []Status{StatusPending, StatusProcessing, StatusSuspended, StatusResolved}

// ParseStatus converts a raw status string into a Status.
func ParseStatus(raw string) (Status, error) {
	for _, s := range Statuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown complaint status %q", raw)
}

// Complaint is a customer complaint tracked through its lifecycle.
// Type, Agent and Resolver are only populated by fetches that join them.
type Complaint struct {
	ID             string         `gorm:"primaryKey" json:"id"`
	CustomerName   string         `gorm:"type:text;not null" json:"customer_name"`
	CustomerNumber string         `gorm:"type:text;not null;index" json:"customer_number"`
	TypeID         string         `gorm:"type:text;not null;index" json:"type_id"`
	Type           *ComplaintType `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	FormData       FormData       `gorm:"type:jsonb" json:"form_data"`
	Status         Status         `gorm:"type:varchar(16);not null;index" json:"status"`

	// SuspensionReason is set only while the last transition was into Suspended.
	SuspensionReason string `gorm:"type:text" json:"suspension_reason,omitempty"`
	// ClosureReason, ResolvedBy and ResolvedAt are set together on entry into Resolved.
	ClosureReason string     `gorm:"type:text" json:"closure_reason,omitempty"`
	ResolvedBy    *string    `gorm:"type:text" json:"resolved_by,omitempty"`
	Resolver      *Agent     `gorm:"foreignKey:ResolvedBy" json:"resolver,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`

	ReminderCount int          `gorm:"not null;default:0" json:"reminder_count"`
	ReminderLogs  ReminderLogs `gorm:"type:jsonb" json:"reminder_logs"`

	CreatedAt time.Time `gorm:"index;autoCreateTime" json:"created_at"`
	AgentID   string    `gorm:"type:text;index" json:"agent_id"`
	Agent     *Agent    `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}

// BeforeCreate генерує UUID для скарги, якщо ID ще не встановлено.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// TypeName returns the joined type name, or the raw type id when the type was not loaded.
func (c *Complaint) TypeName() string {
	if c.Type != nil && c.Type.Name != "" {
		return c.Type.Name
	}
	return c.TypeID
}

// FormData maps a field definition id to the submitted value.
type FormData map[string]string

// Value implements driver.Valuer.
func (f FormData) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (f *FormData) Scan(src interface{}) error {
	data, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("form data: %w", err)
	}
	out := FormData{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("form data: %w", err)
		}
	}
	*f = out
	return nil
}

// ErrStatusConflict is returned when a patch expected a status the complaint no longer has.
var ErrStatusConflict = errors.New("complaint status changed concurrently")

// ComplaintPatch is a partial update of a complaint. Nil fields are left untouched.
// ExpectStatus is a write condition, not a column: the update only applies while
// the stored status still equals it.
type ComplaintPatch struct {
	ExpectStatus     *Status
	Status           *Status
	SuspensionReason *string
	ClosureReason    *string
	ResolvedBy       *string
	ResolvedAt       *time.Time
	ReminderCount    *int
	ReminderLogs     ReminderLogs
}

// Columns returns the patch as a column map for a single UPDATE statement.
func (p ComplaintPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.SuspensionReason != nil {
		cols["suspension_reason"] = *p.SuspensionReason
	}
	if p.ClosureReason != nil {
		cols["closure_reason"] = *p.ClosureReason
	}
	if p.ResolvedBy != nil {
		cols["resolved_by"] = *p.ResolvedBy
	}
	if p.ResolvedAt != nil {
		cols["resolved_at"] = *p.ResolvedAt
	}
	if p.ReminderCount != nil {
		cols["reminder_count"] = *p.ReminderCount
	}
	if p.ReminderLogs != nil {
		cols["reminder_logs"] = p.ReminderLogs
	}
	return cols
}

// IsEmpty reports whether the patch changes nothing.
func (p ComplaintPatch) IsEmpty() bool {
	return len(p.Columns()) == 0
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", src)
	}
}
