package receipt

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/enrollpay/internal/config"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
)

var ErrNotPaid = errors.New("payment_not_settled")

// Renderer turns a settled payment into a downloadable document.
type Renderer interface {
	Render(ctx context.Context, data Data) ([]byte, error)
}

// Data is everything printed on a receipt, already formatted.
type Data struct {
	IssuerName   string
	IssuerEmail  string
	Reference    string
	PayerEmail   string
	SubjectID    string
	PricingPhase string
	Amount       string
	PaidAt       string
}

// FromPayment builds receipt data for a SUCCESS record. Anything else,
// including a success without a settlement time, has no receipt.
func FromPayment(record *paymentdomain.PaymentRecord, cfg config.ReceiptConfig) (Data, error) {
	if record == nil || record.Status != paymentdomain.StatusSuccess || record.PaidAt == nil {
		return Data{}, ErrNotPaid
	}

	return Data{
		IssuerName:   cfg.IssuerName,
		IssuerEmail:  cfg.IssuerEmail,
		Reference:    record.Reference,
		PayerEmail:   record.Email,
		SubjectID:    record.SubjectID.String(),
		PricingPhase: phaseLabel(record.PricingPhase),
		Amount:       FormatAmount(record.ExpectedAmount, record.ExpectedCurrency),
		PaidAt:       record.PaidAt.UTC().Format(time.RFC1123),
	}, nil
}

func phaseLabel(phase string) string {
	words := strings.Fields(strings.ReplaceAll(strings.ToLower(phase), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
