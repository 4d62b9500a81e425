package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationLog records each best-effort alert sent to volunteers.
// Delivery is advisory: a missing or failing channel is logged as
// skipped, never surfaced to the reporter.
type NotificationLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	IncidentID *uuid.UUID `gorm:"type:uuid;index" json:"incident_id"`

	Channel   string `gorm:"size:50;not null" json:"channel"`
	Recipient string `gorm:"size:200" json:"recipient"`
	Body      string `gorm:"type:text" json:"body"`
	Status    string `gorm:"size:20;not null" json:"status"` // sent, skipped, failed

	CreatedAt time.Time `json:"created_at"`
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
