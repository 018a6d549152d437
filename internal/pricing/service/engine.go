package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/smallbiznis/enrollpay/internal/clock"
	"github.com/smallbiznis/enrollpay/internal/config"
	"github.com/smallbiznis/enrollpay/internal/pricing/domain"
	"go.uber.org/fx"
)

// Compute returns the quote for now under the given schedule.
// Close dates are inclusive: the close date itself keeps the cheaper phase.
func Compute(schedule config.PricingConfig, now time.Time) (domain.Quote, error) {
	loc, err := schedule.Location()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrInvalidSchedule, err)
	}
	earlyClose, err := schedule.EarlyBirdCloseDate()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrInvalidSchedule, err)
	}
	registrationClose, err := schedule.RegistrationCloseDate()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrInvalidSchedule, err)
	}

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	quote := domain.Quote{
		BaseAmountMinorUnits: schedule.BaseAmountMinorUnits,
		AmountMinorUnits:     schedule.BaseAmountMinorUnits,
		Currency:             strings.ToUpper(strings.TrimSpace(schedule.Currency)),
	}

	switch {
	case !today.After(earlyClose):
		quote.Phase = domain.PhaseEarlyBird
		if schedule.DiscountPercent > 0 {
			quote.DiscountApplied = true
			quote.DiscountPercent = schedule.DiscountPercent
			quote.AmountMinorUnits = applyDiscount(schedule.BaseAmountMinorUnits, schedule.DiscountPercent)
		}
	case !today.After(registrationClose):
		quote.Phase = domain.PhaseRegular
	default:
		quote.Phase = domain.PhaseClosed
	}

	return quote, nil
}

func applyDiscount(base int64, percent float64) int64 {
	return int64(math.Round(float64(base) * (100 - percent) / 100))
}

type Params struct {
	fx.In

	Holder *config.PricingConfigHolder
	Clock  clock.Clock
}

type Service struct {
	holder *config.PricingConfigHolder
	clock  clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{holder: p.Holder, clock: p.Clock}
}

func (s *Service) Quote(_ context.Context) (domain.Quote, error) {
	return Compute(s.holder.Get(), s.clock.Now())
}
