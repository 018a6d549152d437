package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/enrollpay/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const selectColumns = `SELECT id, reference, user_id, subject_id, email, expected_amount, expected_currency,
	pricing_phase, status, gateway_status, failure_reason, paid_at, raw_gateway_response,
	authorization_url, access_code, verify_attempts, last_verified_at, created_at, updated_at
	FROM payments`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.PaymentRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, reference, user_id, subject_id, email, expected_amount, expected_currency,
			pricing_phase, status, authorization_url, access_code, verify_attempts,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		record.ID,
		record.Reference,
		record.UserID,
		record.SubjectID,
		record.Email,
		record.ExpectedAmount,
		record.ExpectedCurrency,
		record.PricingPhase,
		record.Status,
		record.AuthorizationURL,
		record.AccessCode,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.PaymentRecord, error) {
	var item domain.PaymentRecord
	err := db.WithContext(ctx).Raw(
		selectColumns+` WHERE reference = ? LIMIT 1`,
		reference,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// UpdateOutcome writes a verification result. Rows already in SUCCESS are
// never touched; the bool reports whether a row changed.
func (r *repo) UpdateOutcome(ctx context.Context, db *gorm.DB, update domain.OutcomeUpdate) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?,
			paid_at = ?,
			gateway_status = ?,
			failure_reason = ?,
			raw_gateway_response = ?,
			verify_attempts = verify_attempts + 1,
			last_verified_at = ?,
			updated_at = ?
		 WHERE id = ? AND status <> ?`,
		update.Status,
		update.PaidAt,
		update.GatewayStatus,
		update.FailureReason,
		update.Raw,
		update.VerifiedAt,
		update.VerifiedAt,
		update.ID,
		domain.StatusSuccess,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListReverifyCandidates(ctx context.Context, db *gorm.DB, createdBefore, createdAfter time.Time, limit int) ([]domain.PaymentRecord, error) {
	var items []domain.PaymentRecord
	err := db.WithContext(ctx).Raw(
		selectColumns+`
		 WHERE status = ? AND created_at <= ? AND created_at >= ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		domain.StatusPending,
		createdBefore,
		createdAfter,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
