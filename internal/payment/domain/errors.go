package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrPaymentNotFound    = errors.New("payment_not_found")
	ErrInvalidReference   = errors.New("invalid_reference")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrEventIgnored       = errors.New("event_ignored")
	ErrRegistrationClosed = errors.New("registration_closed")
	ErrAlreadyPaid        = errors.New("already_paid")
	ErrProviderNotFound   = errors.New("provider_not_found")
	ErrDuplicateReference = errors.New("duplicate_reference")
)

// ConfigurationError reports a secret or setting the payment flow cannot run without.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("payment configuration missing: %s", e.Key)
}

// GatewayError wraps any failure talking to the payment gateway.
// Local state is never changed when one is returned.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("gateway %s failed (status %d): %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("gateway %s failed: %s", e.Op, msg)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Retryable is true for transport failures, throttling and server errors.
func (e *GatewayError) Retryable() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// ReconciliationMismatch is returned after a FAILED outcome has been committed.
type ReconciliationMismatch struct {
	Reference     string
	Reason        Reason
	GatewayStatus string
}

func (e *ReconciliationMismatch) Error() string {
	return fmt.Sprintf("payment %s rejected: %s", e.Reference, e.Reason)
}
