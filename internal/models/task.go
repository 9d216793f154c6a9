package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusClosed     TaskStatus = "closed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusCompleted, TaskStatusClosed:
		return true
	}
	return false
}

type BudgetType string

const (
	BudgetFixed BudgetType = "fixed"
	BudgetRange BudgetType = "range"
)

type Task struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EmployerID uuid.UUID `gorm:"type:uuid;not null;index" json:"employer_id"`

	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`

	// BudgetType discriminates: fixed -> Budget set, range -> Min/MaxBudget set.
	BudgetType BudgetType `gorm:"type:varchar(20)" json:"budget_type,omitempty"`
	Budget     *float64   `gorm:"type:numeric(12,2)" json:"budget,omitempty"`
	MinBudget  *float64   `gorm:"type:numeric(12,2)" json:"min_budget,omitempty"`
	MaxBudget  *float64   `gorm:"type:numeric(12,2)" json:"max_budget,omitempty"`

	CategoryID   *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Deadline     *time.Time `gorm:"type:date" json:"deadline,omitempty"`
	Requirements string     `gorm:"type:text" json:"requirements"`

	Status TaskStatus `gorm:"type:varchar(20);default:'open';index" json:"status"`

	// Set when a bid is accepted.
	FreelancerID *uuid.UUID `gorm:"type:uuid;index" json:"freelancer_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Employer   *User     `gorm:"foreignKey:EmployerID" json:"employer,omitempty"`
	Freelancer *User     `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
