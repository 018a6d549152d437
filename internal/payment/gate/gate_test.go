package gate

import (
	"testing"

	"github.com/smallbiznis/enrollpay/internal/payment/domain"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	ok := domain.VerifyResult{
		OK:               true,
		Status:           "success",
		Reference:        "ENR_01JB8M3Z5X7Q2W4E6R8T0Y2S4V",
		AmountMinorUnits: 16_575_000,
		Currency:         "NGN",
	}

	tests := []struct {
		name   string
		mutate func(v *domain.VerifyResult)
		amount int64
		curr   string
		want   domain.Decision
	}{
		{
			name:   "accepted",
			mutate: func(v *domain.VerifyResult) {},
			amount: 16_575_000,
			curr:   "NGN",
			want:   domain.Decision{Accepted: true},
		},
		{
			name:   "currency compared case insensitively",
			mutate: func(v *domain.VerifyResult) { v.Currency = " ngn " },
			amount: 16_575_000,
			curr:   "NGN",
			want:   domain.Decision{Accepted: true},
		},
		{
			name:   "verify not ok wins over everything",
			mutate: func(v *domain.VerifyResult) { v.OK = false; v.Status = "failed"; v.AmountMinorUnits = 1 },
			amount: 16_575_000,
			curr:   "NGN",
			want:   domain.Decision{Reason: domain.ReasonVerifyNotOK},
		},
		{
			name:   "abandoned",
			mutate: func(v *domain.VerifyResult) { v.Status = "abandoned" },
			amount: 16_575_000,
			curr:   "NGN",
			want:   domain.Decision{Reason: domain.ReasonNotSuccess},
		},
		{
			name:   "status is case sensitive",
			mutate: func(v *domain.VerifyResult) { v.Status = "SUCCESS" },
			amount: 16_575_000,
			curr:   "NGN",
			want:   domain.Decision{Reason: domain.ReasonNotSuccess},
		},
		{
			name:   "underpaid",
			mutate: func(v *domain.VerifyResult) {},
			amount: 19_500_000,
			curr:   "NGN",
			want:   domain.Decision{Reason: domain.ReasonAmountMismatch},
		},
		{
			name:   "overpaid is still a mismatch",
			mutate: func(v *domain.VerifyResult) { v.AmountMinorUnits = 19_500_000 },
			amount: 16_575_000,
			curr:   "NGN",
			want:   domain.Decision{Reason: domain.ReasonAmountMismatch},
		},
		{
			name:   "amount checked before currency",
			mutate: func(v *domain.VerifyResult) { v.Currency = "USD"; v.AmountMinorUnits = 1 },
			amount: 16_575_000,
			curr:   "NGN",
			want:   domain.Decision{Reason: domain.ReasonAmountMismatch},
		},
		{
			name:   "currency mismatch",
			mutate: func(v *domain.VerifyResult) { v.Currency = "USD" },
			amount: 16_575_000,
			curr:   "NGN",
			want:   domain.Decision{Reason: domain.ReasonCurrencyMismatch},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ok
			tt.mutate(&v)
			assert.Equal(t, tt.want, Decide(v, tt.amount, tt.curr))
		})
	}
}
