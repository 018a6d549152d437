package domain

import (
	"context"
	"errors"
)

type Phase string

const (
	PhaseEarlyBird Phase = "EARLY_BIRD"
	PhaseRegular   Phase = "REGULAR"
	PhaseClosed    Phase = "CLOSED"
)

// Quote is the fee owed at a given instant.
type Quote struct {
	Phase                Phase   `json:"phase"`
	AmountMinorUnits     int64   `json:"amount_minor_units"`
	BaseAmountMinorUnits int64   `json:"base_amount_minor_units"`
	Currency             string  `json:"currency"`
	DiscountApplied      bool    `json:"discount_applied"`
	DiscountPercent      float64 `json:"discount_percent"`
}

var ErrInvalidSchedule = errors.New("invalid_fee_schedule")

type Service interface {
	Quote(ctx context.Context) (Quote, error)
}
