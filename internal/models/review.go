package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a post-engagement rating one task participant leaves about the
// other. At most one per (task, reviewer).
type Review struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID         uuid.UUID `gorm:"type:uuid;not null;index:idx_reviews_task_reviewer" json:"task_id"`
	ReviewerID     uuid.UUID `gorm:"type:uuid;not null;index:idx_reviews_task_reviewer" json:"reviewer_id"`
	ReviewedUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"reviewed_user_id"`

	Rating     int    `gorm:"not null" json:"rating"` // 1..5
	Comment    string `gorm:"type:text" json:"comment"`
	IsPositive bool   `json:"is_positive"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Task         *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Reviewer     *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	ReviewedUser *User `gorm:"foreignKey:ReviewedUserID" json:"reviewed_user,omitempty"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
