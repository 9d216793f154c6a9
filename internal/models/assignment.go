package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentStatus string

const (
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentDisputed   AssignmentStatus = "disputed"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentInProgress, AssignmentCompleted, AssignmentDisputed:
		return true
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentCompleted || s == AssignmentDisputed
}

// Assignment tracks accepted-bid work, 1:1 with its task.
type Assignment struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"task_id"`
	FreelancerID uuid.UUID `gorm:"type:uuid;not null;index" json:"freelancer_id"`
	EmployerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"employer_id"`

	AgreedAmount float64          `gorm:"type:numeric(12,2);not null" json:"agreed_amount"`
	Status       AssignmentStatus `gorm:"type:varchar(20);default:'in_progress'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Task       *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Freelancer *User `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	Employer   *User `gorm:"foreignKey:EmployerID" json:"employer,omitempty"`
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
