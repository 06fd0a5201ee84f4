package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Agent is a support agent who submits, works on and resolves complaints.
type Agent struct {
	ID          string `gorm:"primaryKey" json:"id"`
	DisplayName string `gorm:"type:text;not null" json:"display_name"`
	Role        string `gorm:"type:varchar(32)" json:"role,omitempty"` // "agent", "supervisor"
}

// BeforeCreate генерує UUID для агента, якщо ID ще не встановлено.
func (a *Agent) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return
}
