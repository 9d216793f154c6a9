package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

func (s BidStatus) Valid() bool {
	switch s {
	case BidStatusPending, BidStatusAccepted, BidStatusRejected:
		return true
	}
	return false
}

// Bid is a freelancer's offer on a task. At most one per (task, freelancer),
// enforced by an existence check on create.
type Bid struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID       uuid.UUID `gorm:"type:uuid;not null;index:idx_bids_task_freelancer" json:"task_id"`
	FreelancerID uuid.UUID `gorm:"type:uuid;not null;index:idx_bids_task_freelancer" json:"freelancer_id"`

	Amount  float64   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Comment string    `gorm:"type:text" json:"comment"`
	Status  BidStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Task       *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Freelancer *User `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
}

func (b *Bid) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}
