package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/enrollpay/internal/clock"
	"github.com/smallbiznis/enrollpay/internal/config"
	"github.com/smallbiznis/enrollpay/internal/pricing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchedule() config.PricingConfig {
	return config.PricingConfig{
		BaseAmountMinorUnits: 19_500_000,
		Currency:             "ngn",
		DiscountPercent:      15,
		EarlyBirdCloses:      "2026-11-30",
		RegistrationCloses:   "2027-01-15",
		Timezone:             "Africa/Lagos",
	}
}

func lagos(t *testing.T, layout string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", layout, loc)
	require.NoError(t, err)
	return ts
}

func TestComputePhaseBoundaries(t *testing.T) {
	schedule := testSchedule()

	tests := []struct {
		name       string
		now        time.Time
		wantPhase  domain.Phase
		wantAmount int64
	}{
		{"well before early close", lagos(t, "2026-10-01 09:00:00"), domain.PhaseEarlyBird, 16_575_000},
		{"early close date, last minute", lagos(t, "2026-11-30 23:59:59"), domain.PhaseEarlyBird, 16_575_000},
		{"day after early close", lagos(t, "2026-12-01 00:00:00"), domain.PhaseRegular, 19_500_000},
		{"registration close date", lagos(t, "2027-01-15 23:59:59"), domain.PhaseRegular, 19_500_000},
		{"day after registration close", lagos(t, "2027-01-16 00:00:00"), domain.PhaseClosed, 19_500_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := Compute(schedule, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPhase, quote.Phase)
			assert.Equal(t, tt.wantAmount, quote.AmountMinorUnits)
			assert.Equal(t, "NGN", quote.Currency)
			assert.Equal(t, tt.wantPhase == domain.PhaseEarlyBird, quote.DiscountApplied)
		})
	}
}

func TestComputeUsesScheduleTimezone(t *testing.T) {
	// 23:30 UTC on the early close date is already the next day in Lagos.
	now := time.Date(2026, time.November, 30, 23, 30, 0, 0, time.UTC)

	quote, err := Compute(testSchedule(), now)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseRegular, quote.Phase)
}

func TestComputeRoundsDiscountToMinorUnit(t *testing.T) {
	schedule := testSchedule()
	early := lagos(t, "2026-11-01 12:00:00")

	tests := []struct {
		base int64
		want int64
	}{
		{base: 10, want: 9},     // 8.5 rounds half away from zero
		{base: 1001, want: 851}, // 850.85
		{base: 1003, want: 853}, // 852.55
		{base: 1, want: 1},      // 0.85
	}
	for _, tt := range tests {
		schedule.BaseAmountMinorUnits = tt.base
		quote, err := Compute(schedule, early)
		require.NoError(t, err)
		assert.Equal(t, tt.want, quote.AmountMinorUnits, "base %d", tt.base)
		assert.Equal(t, 15.0, quote.DiscountPercent)
	}
}

func TestComputeWithoutDiscount(t *testing.T) {
	schedule := testSchedule()
	schedule.DiscountPercent = 0

	quote, err := Compute(schedule, lagos(t, "2026-11-01 12:00:00"))
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEarlyBird, quote.Phase)
	assert.False(t, quote.DiscountApplied)
	assert.Equal(t, int64(19_500_000), quote.AmountMinorUnits)
}

func TestComputeIsDeterministic(t *testing.T) {
	now := lagos(t, "2026-11-30 12:00:00")
	first, err := Compute(testSchedule(), now)
	require.NoError(t, err)
	second, err := Compute(testSchedule(), now)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestServiceQuoteUsesClockAndHolder(t *testing.T) {
	holder, err := config.NewStaticPricingConfigHolder(testSchedule())
	require.NoError(t, err)
	fake := clock.NewFakeClock(lagos(t, "2027-01-20 10:00:00"))

	svc := NewService(Params{Holder: holder, Clock: fake})
	quote, err := svc.Quote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseClosed, quote.Phase)

	fake.Set(lagos(t, "2026-11-15 10:00:00"))
	quote, err = svc.Quote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEarlyBird, quote.Phase)
}

func TestComputeInvalidSchedule(t *testing.T) {
	schedule := testSchedule()
	schedule.Timezone = "Nowhere/Special"

	_, err := Compute(schedule, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidSchedule)
}
