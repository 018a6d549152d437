package gate

import (
	"strings"

	"github.com/smallbiznis/enrollpay/internal/payment/domain"
)

const gatewayStatusSuccess = "success"

// Decide accepts a verification only when every check passes. Checks run in
// a fixed order and the first failure is reported.
func Decide(v domain.VerifyResult, expectedAmount int64, expectedCurrency string) domain.Decision {
	switch {
	case !v.OK:
		return reject(domain.ReasonVerifyNotOK)
	case v.Status != gatewayStatusSuccess:
		return reject(domain.ReasonNotSuccess)
	case v.AmountMinorUnits != expectedAmount:
		return reject(domain.ReasonAmountMismatch)
	case !strings.EqualFold(strings.TrimSpace(v.Currency), strings.TrimSpace(expectedCurrency)):
		return reject(domain.ReasonCurrencyMismatch)
	}
	return domain.Decision{Accepted: true}
}

func reject(reason domain.Reason) domain.Decision {
	return domain.Decision{Reason: reason}
}
