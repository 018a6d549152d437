package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// PaymentRecord is the local ledger row for one payment attempt.
// ExpectedAmount and ExpectedCurrency are written at insert and never updated.
type PaymentRecord struct {
	ID                 snowflake.ID   `json:"id" gorm:"primaryKey"`
	Reference          string         `json:"reference" gorm:"type:text;not null;uniqueIndex"`
	UserID             snowflake.ID   `json:"user_id" gorm:"not null;index"`
	SubjectID          snowflake.ID   `json:"subject_id" gorm:"not null;index"`
	Email              string         `json:"email" gorm:"type:text;not null"`
	ExpectedAmount     int64          `json:"expected_amount" gorm:"not null"`
	ExpectedCurrency   string         `json:"expected_currency" gorm:"type:text;not null"`
	PricingPhase       string         `json:"pricing_phase" gorm:"type:text;not null"`
	Status             Status         `json:"status" gorm:"type:text;not null;index"`
	GatewayStatus      string         `json:"gateway_status" gorm:"type:text"`
	FailureReason      string         `json:"failure_reason" gorm:"type:text"`
	PaidAt             *time.Time     `json:"paid_at"`
	RawGatewayResponse datatypes.JSON `json:"raw_gateway_response" gorm:"type:jsonb"`
	AuthorizationURL   string         `json:"authorization_url" gorm:"type:text"`
	AccessCode         string         `json:"access_code" gorm:"type:text"`
	VerifyAttempts     int            `json:"verify_attempts" gorm:"not null;default:0"`
	LastVerifiedAt     *time.Time     `json:"last_verified_at"`
	CreatedAt          time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time      `json:"updated_at" gorm:"not null"`
}

func (PaymentRecord) TableName() string { return "payments" }

// OutcomeUpdate is the only mutation applied to a stored record after insert.
type OutcomeUpdate struct {
	ID            snowflake.ID
	Status        Status
	PaidAt        *time.Time
	GatewayStatus string
	FailureReason string
	Raw           datatypes.JSON
	VerifiedAt    time.Time
}

// Trigger names the entry point that started a reconciliation.
type Trigger string

const (
	TriggerUser      Trigger = "user"
	TriggerWebhook   Trigger = "webhook"
	TriggerAdmin     Trigger = "admin"
	TriggerScheduler Trigger = "scheduler"
)

// Reason explains why the gate rejected a verification.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonVerifyNotOK      Reason = "verify_not_ok"
	ReasonNotSuccess       Reason = "not_success"
	ReasonAmountMismatch   Reason = "amount_mismatch"
	ReasonCurrencyMismatch Reason = "currency_mismatch"
)

// Decision is the gate verdict for one verification result.
type Decision struct {
	Accepted bool
	Reason   Reason
}

// Outcome summarises a reconciliation for callers.
type Outcome struct {
	Reference        string     `json:"reference"`
	Status           Status     `json:"status"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	AlreadySucceeded bool       `json:"already_succeeded"`
	Reason           Reason     `json:"reason,omitempty"`
	GatewayStatus    string     `json:"gateway_status,omitempty"`
	Trigger          Trigger    `json:"-"`
}

// VerifyResult is the normalised answer of a gateway verify call.
type VerifyResult struct {
	OK               bool
	Status           string
	Reference        string
	AmountMinorUnits int64
	Currency         string
	PaidAt           *time.Time
	GatewayResponse  string
	Raw              []byte
}

type InitializeRequest struct {
	Email            string
	AmountMinorUnits int64
	Currency         string
	Reference        string
	CallbackURL      string
	Metadata         map[string]any
}

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

type CheckoutRequest struct {
	UserID    snowflake.ID
	SubjectID snowflake.ID
	Email     string
	Metadata  map[string]any
}

type CheckoutResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	Currency         string `json:"currency"`
	PricingPhase     string `json:"pricing_phase"`
}

// Event is published after a reconciliation commits.
type Event struct {
	Type       string     `json:"type"`
	Reference  string     `json:"reference"`
	PaymentID  string     `json:"payment_id"`
	SubjectID  string     `json:"subject_id"`
	UserID     string     `json:"user_id"`
	Status     Status     `json:"status"`
	Reason     Reason     `json:"reason,omitempty"`
	Amount     int64      `json:"amount"`
	Currency   string     `json:"currency"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	Trigger    Trigger    `json:"trigger"`
	OccurredAt time.Time  `json:"occurred_at"`
}

const (
	EventTypePaymentSucceeded = "payment.succeeded"
	EventTypePaymentFailed    = "payment.failed"
)
