package domain

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"
)

// Gateway is the outbound contract with a payment provider.
type Gateway interface {
	Provider() string
	SignatureHeader() string
	InitializeTransaction(ctx context.Context, req InitializeRequest) (InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (VerifyResult, error)
	VerifyWebhookSignature(body []byte, signature string) (bool, error)
}

type AdapterConfig struct {
	BaseURL    string
	SecretKey  string
	Timeout    time.Duration
	MaxRetries int
	MaxElapsed time.Duration
	HTTPClient *http.Client
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Gateway, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *PaymentRecord) error
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*PaymentRecord, error)
	UpdateOutcome(ctx context.Context, db *gorm.DB, update OutcomeUpdate) (bool, error)
	ListReverifyCandidates(ctx context.Context, db *gorm.DB, createdBefore, createdAfter time.Time, limit int) ([]PaymentRecord, error)
}

type Service interface {
	Reconcile(ctx context.Context, reference string, trigger Trigger) (*Outcome, error)
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	GetByReference(ctx context.Context, reference string) (*PaymentRecord, error)
	ListReverifyCandidates(ctx context.Context, olderThan, maxAge time.Duration, limit int) ([]PaymentRecord, error)
}

type WebhookService interface {
	IngestWebhook(ctx context.Context, payload []byte, headers http.Header) error
}
