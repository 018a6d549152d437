package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/enrollpay/internal/audit/domain"
	"github.com/smallbiznis/enrollpay/internal/audit/masking"
	authdomain "github.com/smallbiznis/enrollpay/internal/auth/domain"
	"github.com/smallbiznis/enrollpay/internal/authorization"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
	"github.com/smallbiznis/enrollpay/internal/receipt"
)

type checkoutRequest struct {
	SubjectID string         `json:"subject_id" validate:"required,max=32"`
	Email     string         `json:"email" validate:"required,email,max=254"`
	Metadata  map[string]any `json:"metadata"`
}

// paymentStatusResponse is what an applicant sees; rejection details stay
// on the staff endpoints.
type paymentStatusResponse struct {
	Reference        string               `json:"reference"`
	Status           paymentdomain.Status `json:"status"`
	Amount           int64                `json:"amount,omitempty"`
	Currency         string               `json:"currency,omitempty"`
	PricingPhase     string               `json:"pricing_phase,omitempty"`
	AuthorizationURL string               `json:"authorization_url,omitempty"`
	AlreadySucceeded bool                 `json:"already_succeeded,omitempty"`
	PaidAt           *time.Time           `json:"paid_at,omitempty"`
	CreatedAt        *time.Time           `json:"created_at,omitempty"`
}

func (s *Server) Checkout(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := s.bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	subjectID, err := snowflake.ParseString(strings.TrimSpace(req.SubjectID))
	if err != nil || subjectID <= 0 {
		AbortWithError(c, newValidationError("subject_id", "invalid", "invalid value"))
		return
	}

	ctx := c.Request.Context()
	if err := s.authzSvc.Authorize(ctx, principal, authorization.ObjectPayment, authorization.ActionPaymentCheckout, principal.UserID); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.paymentSvc.Checkout(ctx, paymentdomain.CheckoutRequest{
		UserID:    principal.UserID,
		SubjectID: subjectID,
		Email:     req.Email,
		Metadata:  req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordPaymentAudit(c, auditdomain.ActionPaymentCheckout, result.Reference, map[string]any{
		"subject_id":    subjectID.String(),
		"email":         masking.MaskEmail(req.Email),
		"amount":        result.AmountMinorUnits,
		"currency":      result.Currency,
		"pricing_phase": result.PricingPhase,
		"metadata":      masking.MaskJSON(req.Metadata),
	})
	c.JSON(http.StatusCreated, result)
}

func (s *Server) GetPayment(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	record, err := s.loadOwnedPayment(c, principal, authorization.ActionPaymentView)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := paymentStatusResponse{
		Reference:    record.Reference,
		Status:       record.Status,
		Amount:       record.ExpectedAmount,
		Currency:     record.ExpectedCurrency,
		PricingPhase: record.PricingPhase,
		PaidAt:       record.PaidAt,
		CreatedAt:    &record.CreatedAt,
	}
	if record.Status == paymentdomain.StatusPending {
		resp.AuthorizationURL = record.AuthorizationURL
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DownloadReceipt(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	record, err := s.loadOwnedPayment(c, principal, authorization.ActionPaymentView)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := receipt.FromPayment(record, s.cfg.Receipt)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	doc, err := s.receipts.Render(c.Request.Context(), data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt-`+record.Reference+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", doc)
}

// VerifyPayment is the "I have paid" action. It never trusts the redirect;
// the gateway is asked directly.
func (s *Server) VerifyPayment(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	record, err := s.loadOwnedPayment(c, principal, authorization.ActionPaymentVerify)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	outcome, err := s.paymentSvc.Reconcile(c.Request.Context(), record.Reference, paymentdomain.TriggerUser)
	if err != nil {
		if principal.IsStaff() {
			err = withDiagnostics(err)
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, paymentStatusResponse{
		Reference:        outcome.Reference,
		Status:           outcome.Status,
		AlreadySucceeded: outcome.AlreadySucceeded,
		PaidAt:           outcome.PaidAt,
	})
}

// loadOwnedPayment resolves the path reference and checks the principal may
// act on it. Records owned by someone else are reported as missing.
func (s *Server) loadOwnedPayment(c *gin.Context, principal authdomain.Principal, action string) (*paymentdomain.PaymentRecord, error) {
	ctx := c.Request.Context()
	record, err := s.paymentSvc.GetByReference(ctx, c.Param("reference"))
	if err != nil {
		return nil, err
	}

	if err := s.authzSvc.Authorize(ctx, principal, authorization.ObjectPayment, action, record.UserID); err != nil {
		if errors.Is(err, authorization.ErrForbidden) {
			return nil, paymentdomain.ErrPaymentNotFound
		}
		return nil, err
	}
	return record, nil
}
