package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/enrollpay/internal/enrollment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, enrollment *domain.Enrollment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO enrollments (id, user_id, program, is_paid, paid_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		enrollment.ID,
		enrollment.UserID,
		enrollment.Program,
		enrollment.IsPaid,
		enrollment.PaidAt,
		enrollment.CreatedAt,
		enrollment.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Enrollment, error) {
	var enrollment domain.Enrollment
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, program, is_paid, paid_at, created_at, updated_at
		 FROM enrollments WHERE id = ?`,
		id,
	).Scan(&enrollment).Error
	if err != nil {
		return nil, err
	}
	if enrollment.ID == 0 {
		return nil, nil
	}
	return &enrollment, nil
}

func (r *repo) MarkEnrollmentPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET is_paid = TRUE, paid_at = ?, updated_at = ?
		 WHERE id = ? AND is_paid = FALSE`,
		paidAt,
		paidAt,
		id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM enrollments WHERE id = ?`, id).Scan(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrEnrollmentNotFound
	}
	return nil
}
