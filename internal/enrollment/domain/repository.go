package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrEnrollmentNotFound = errors.New("enrollment_not_found")

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, enrollment *Enrollment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Enrollment, error)
	// MarkEnrollmentPaid flips is_paid once. Repeated calls are no-ops.
	MarkEnrollmentPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) error
}
