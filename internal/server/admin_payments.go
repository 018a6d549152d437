package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/enrollpay/internal/audit/domain"
	"github.com/smallbiznis/enrollpay/internal/observability/logger"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
	"go.uber.org/zap"
)

// GetPaymentDiagnostics returns the stored record including the last raw
// gateway response, plus its recent audit trail.
func (s *Server) GetPaymentDiagnostics(c *gin.Context) {
	record, err := s.paymentSvc.GetByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	trail := s.paymentAuditTrail(c, record.Reference)
	s.recordPaymentAudit(c, auditdomain.ActionPaymentDiagnosticsView, record.Reference, map[string]any{
		"status": string(record.Status),
	})

	c.JSON(http.StatusOK, gin.H{
		"payment":    record,
		"audit_logs": trail,
	})
}

func (s *Server) ReverifyPayment(c *gin.Context) {
	ctx := c.Request.Context()
	reference := c.Param("reference")

	outcome, err := s.paymentSvc.Reconcile(ctx, reference, paymentdomain.TriggerAdmin)
	s.auditReverify(c, reference, outcome, err)
	if err != nil {
		AbortWithError(c, withDiagnostics(err))
		return
	}

	logger.WithContext(ctx, s.log).Info("payment re-verified by staff",
		zap.String("reference", outcome.Reference),
		zap.String("status", string(outcome.Status)),
		zap.Bool("already_succeeded", outcome.AlreadySucceeded),
	)
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) auditReverify(c *gin.Context, reference string, outcome *paymentdomain.Outcome, err error) {
	metadata := map[string]any{}
	var mismatch *paymentdomain.ReconciliationMismatch
	switch {
	case err == nil:
		metadata["result"] = string(outcome.Status)
		metadata["already_succeeded"] = outcome.AlreadySucceeded
	case errors.As(err, &mismatch):
		metadata["result"] = string(paymentdomain.StatusFailed)
		metadata["reason"] = string(mismatch.Reason)
	case errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, paymentdomain.ErrInvalidReference):
		return
	default:
		metadata["result"] = "error"
	}
	s.recordPaymentAudit(c, auditdomain.ActionPaymentReverify, reference, metadata)
}
