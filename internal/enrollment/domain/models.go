package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Enrollment is the applicant record whose fee is being paid. Only the paid
// flag is written by this service.
type Enrollment struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID    snowflake.ID `json:"user_id" gorm:"not null;index"`
	Program   string       `json:"program" gorm:"type:text;not null"`
	IsPaid    bool         `json:"is_paid" gorm:"not null;default:false"`
	PaidAt    *time.Time   `json:"paid_at"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Enrollment) TableName() string { return "enrollments" }
