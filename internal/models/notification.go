package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Related-entity tags, used by clients for deep-linking.
const (
	EntityChat       = "chat"
	EntityBid        = "bid"
	EntityTask       = "task"
	EntityAssignment = "assignment"
	EntityReview     = "review"
)

// Notification is only ever created as a side effect of another component's
// mutation, never directly by a user action.
type Notification struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Message string `gorm:"type:text;not null" json:"message"`
	IsRead  bool   `gorm:"default:false" json:"is_read"`

	RelatedEntityType string     `gorm:"type:varchar(50)" json:"related_entity_type"`
	RelatedEntityID   *uuid.UUID `gorm:"type:uuid" json:"related_entity_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}
