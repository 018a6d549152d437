package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/smallbiznis/enrollpay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/enrollpay/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
	"github.com/smallbiznis/enrollpay/internal/reference"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// EventChargeSuccess is the only gateway event that triggers a reconciliation.
const EventChargeSuccess = "charge.success"

type Params struct {
	fx.In

	Log        *zap.Logger
	Gateway    paymentdomain.Gateway
	Payments   paymentdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	gateway    paymentdomain.Gateway
	payments   paymentdomain.Service
	obsMetrics *obsmetrics.Metrics
}

type envelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		gateway:    p.Gateway,
		payments:   p.Payments,
		obsMetrics: p.ObsMetrics,
	}
}

// IngestWebhook authenticates a gateway push and reconciles the referenced
// payment. The push itself is never trusted: it only names the reference to
// verify. A nil error means the gateway should not redeliver.
func (s *Service) IngestWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	provider := s.gateway.Provider()
	log := logger.WithContext(ctx, s.log).With(zap.String("provider", provider))

	signature := strings.TrimSpace(headers.Get(s.gateway.SignatureHeader()))
	ok, err := s.gateway.VerifyWebhookSignature(payload, signature)
	if err != nil {
		s.obsMetrics.RecordWebhook(ctx, provider, "", "config_error")
		return err
	}
	if !ok {
		log.Warn("webhook signature rejected", zap.Bool("signature_present", signature != ""))
		s.obsMetrics.RecordWebhook(ctx, provider, "", "invalid_signature")
		return paymentdomain.ErrInvalidSignature
	}

	var body envelope
	if err := json.Unmarshal(payload, &body); err != nil {
		s.obsMetrics.RecordWebhook(ctx, provider, "", "invalid_payload")
		return paymentdomain.ErrInvalidPayload
	}
	eventType := strings.TrimSpace(body.Event)
	if eventType != EventChargeSuccess {
		log.Debug("webhook event ignored", zap.String("event_type", eventType))
		s.obsMetrics.RecordWebhook(ctx, provider, eventType, "ignored")
		return nil
	}

	ref := strings.TrimSpace(body.Data.Reference)
	if !reference.Valid(ref) {
		log.Warn("webhook carried an unusable reference", zap.Int("reference_length", len(ref)))
		s.obsMetrics.RecordWebhook(ctx, provider, eventType, "invalid_reference")
		return nil
	}

	outcome, err := s.payments.Reconcile(ctx, ref, paymentdomain.TriggerWebhook)
	var mismatch *paymentdomain.ReconciliationMismatch
	switch {
	case err == nil:
		s.obsMetrics.RecordWebhook(ctx, provider, eventType, "reconciled")
		log.Info("webhook reconciled", zap.String("reference", ref), zap.String("status", string(outcome.Status)))
		return nil
	case errors.Is(err, paymentdomain.ErrPaymentNotFound):
		log.Warn("webhook for unknown payment", zap.String("reference", ref))
		s.obsMetrics.RecordWebhook(ctx, provider, eventType, "unknown_reference")
		return nil
	case errors.As(err, &mismatch):
		s.obsMetrics.RecordWebhook(ctx, provider, eventType, "mismatch")
		return nil
	default:
		s.obsMetrics.RecordWebhook(ctx, provider, eventType, "error")
		return err
	}
}
