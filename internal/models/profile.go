package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FreelancerProfile carries the freelancer-side public data plus the review
// aggregates maintained by the review handlers.
type FreelancerProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	Skills         datatypes.JSON `json:"skills"`          // ["go", "sql", ...]
	PortfolioLinks datatypes.JSON `json:"portfolio_links"` // ["https://...", ...]

	Rating          float64 `gorm:"type:numeric(3,2);default:0" json:"rating"`
	PositiveReviews int     `gorm:"default:0" json:"positive_reviews"`
	NegativeReviews int     `gorm:"default:0" json:"negative_reviews"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *FreelancerProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

type EmployerProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	Rating          float64 `gorm:"type:numeric(3,2);default:0" json:"rating"`
	PositiveReviews int     `gorm:"default:0" json:"positive_reviews"`
	NegativeReviews int     `gorm:"default:0" json:"negative_reviews"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *EmployerProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
