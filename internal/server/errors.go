package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/enrollpay/internal/auth/domain"
	"github.com/smallbiznis/enrollpay/internal/authorization"
	enrollmentdomain "github.com/smallbiznis/enrollpay/internal/enrollment/domain"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
	"github.com/smallbiznis/enrollpay/internal/receipt"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type          string            `json:"type"`
	Message       string            `json:"message"`
	Reason        string            `json:"reason,omitempty"`
	GatewayStatus string            `json:"gateway_status,omitempty"`
	Errors        []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// staffDiagnostics marks an error whose rejection details may be shown to
// the caller.
type staffDiagnostics struct {
	err error
}

func (e *staffDiagnostics) Error() string { return e.err.Error() }
func (e *staffDiagnostics) Unwrap() error { return e.err }

func withDiagnostics(err error) error {
	if err == nil {
		return nil
	}
	return &staffDiagnostics{err: err}
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var mismatch *paymentdomain.ReconciliationMismatch
	if errors.As(err, &mismatch) {
		payload := errorPayload{
			Type:    "payment_failed",
			Message: "payment failed",
		}
		var diag *staffDiagnostics
		if errors.As(err, &diag) {
			payload.Reason = string(mismatch.Reason)
			payload.GatewayStatus = mismatch.GatewayStatus
		}
		return http.StatusConflict, payload
	}

	var cfgErr *paymentdomain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return http.StatusInternalServerError, errorPayload{
			Type:    "configuration_error",
			Message: "payment service is not configured",
		}
	}

	var gwErr *paymentdomain.GatewayError
	if errors.As(err, &gwErr) {
		return http.StatusBadGateway, errorPayload{
			Type:    "gateway_error",
			Message: "payment gateway unavailable",
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, authdomain.ErrMissingToken),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrInvalidRole):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, paymentdomain.ErrDuplicateReference):
		return http.StatusConflict, errorPayload{
			Type:    "duplicate_reference",
			Message: "payment could not be started, please retry",
		}
	case errors.Is(err, paymentdomain.ErrAlreadyPaid):
		return http.StatusConflict, errorPayload{
			Type:    "already_paid",
			Message: "enrollment fee already paid",
		}
	case errors.Is(err, receipt.ErrNotPaid):
		return http.StatusConflict, errorPayload{
			Type:    "payment_not_settled",
			Message: "payment has not succeeded",
		}
	case errors.Is(err, paymentdomain.ErrRegistrationClosed):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "registration_closed",
			Message: "registration is closed",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded by the request logger.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	switch {
	case status >= http.StatusInternalServerError:
		return "server", code
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "auth", code
	default:
		return "client", code
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidReference),
		errors.Is(err, paymentdomain.ErrInvalidPayload):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, enrollmentdomain.ErrEnrollmentNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, paymentdomain.ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, paymentdomain.ErrInvalidPayload):
		return "invalid_payload"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
