package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleFreelancer Role = "freelancer"
	RoleEmployer   Role = "employer"
)

type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`

	Password  string `gorm:"not null" json:"-"`
	FirstName string `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName  string `gorm:"type:varchar(100);not null" json:"last_name"`

	// Role is fixed at registration, never updated afterwards.
	Role Role `gorm:"type:varchar(20);not null;index" json:"role"`

	Description string     `gorm:"type:text" json:"description"`
	LastOnline  *time.Time `json:"last_online,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FreelancerProfile *FreelancerProfile `gorm:"foreignKey:UserID;references:ID" json:"freelancer_profile,omitempty"`
	EmployerProfile   *EmployerProfile   `gorm:"foreignKey:UserID;references:ID" json:"employer_profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}
