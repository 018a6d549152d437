package server

import (
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/enrollpay/internal/audit/domain"
	"go.uber.org/zap"
)

const diagnosticsAuditLimit = 20

// recordPaymentAudit writes an audit entry for a payment. A failed write is
// logged and never fails the request.
func (s *Server) recordPaymentAudit(c *gin.Context, action string, reference string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(c.Request.Context(), "", nil, action, auditdomain.TargetTypePayment, &reference, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.String("reference", reference), zap.Error(err))
	}
}

func (s *Server) paymentAuditTrail(c *gin.Context, reference string) []auditdomain.AuditLog {
	if s.auditSvc == nil {
		return nil
	}
	logs, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		TargetType: auditdomain.TargetTypePayment,
		TargetID:   reference,
		Limit:      diagnosticsAuditLimit,
	})
	if err != nil {
		s.log.Warn("audit read failed", zap.String("reference", reference), zap.Error(err))
		return nil
	}
	return logs
}
