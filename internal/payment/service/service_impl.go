package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/enrollpay/internal/clock"
	"github.com/smallbiznis/enrollpay/internal/config"
	enrollmentdomain "github.com/smallbiznis/enrollpay/internal/enrollment/domain"
	"github.com/smallbiznis/enrollpay/internal/events"
	"github.com/smallbiznis/enrollpay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/enrollpay/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
	"github.com/smallbiznis/enrollpay/internal/payment/gate"
	pricingdomain "github.com/smallbiznis/enrollpay/internal/pricing/domain"
	"github.com/smallbiznis/enrollpay/internal/reference"
	"github.com/smallbiznis/enrollpay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Cfg         config.Config
	Repo        paymentdomain.Repository
	Enrollments enrollmentdomain.Repository
	Gateway     paymentdomain.Gateway
	Pricing     pricingdomain.Service
	References  *reference.Generator
	Publisher   events.Publisher
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	callbackURL string
	repo        paymentdomain.Repository
	enrollments enrollmentdomain.Repository
	gateway     paymentdomain.Gateway
	pricing     pricingdomain.Service
	refs        *reference.Generator
	publisher   events.Publisher
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	publisher := p.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.reconcile"),
		genID:       p.GenID,
		clock:       p.Clock,
		callbackURL: strings.TrimSpace(p.Cfg.Gateway.CallbackURL),
		repo:        p.Repo,
		enrollments: p.Enrollments,
		gateway:     p.Gateway,
		pricing:     p.Pricing,
		refs:        p.References,
		publisher:   publisher,
		obsMetrics:  p.ObsMetrics,
	}
}

var _ paymentdomain.Service = (*Service)(nil)

// Reconcile verifies a payment with the gateway and records the verdict.
// It is safe to call any number of times from any entry point: a SUCCESS
// record is returned as-is and the enrollment is marked paid at most once.
func (s *Service) Reconcile(ctx context.Context, ref string, trigger paymentdomain.Trigger) (*paymentdomain.Outcome, error) {
	ref = strings.TrimSpace(ref)
	if !reference.Valid(ref) {
		return nil, paymentdomain.ErrInvalidReference
	}
	log := logger.WithPayment(logger.WithContext(ctx, s.log), ref, string(trigger))

	record, err := s.repo.FindByReference(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	if record.Status == paymentdomain.StatusSuccess {
		s.obsMetrics.RecordReconciliation(ctx, string(trigger), "already_succeeded", "")
		return successOutcome(record, trigger, true), nil
	}

	verified, err := s.verify(ctx, ref)
	if err != nil {
		log.Warn("gateway verification failed, record left unchanged", zap.Error(err))
		s.obsMetrics.RecordReconciliation(ctx, string(trigger), "gateway_error", "")
		return nil, fmt.Errorf("verify %s: %w", ref, err)
	}
	if verified.OK && !strings.EqualFold(strings.TrimSpace(verified.Reference), ref) {
		log.Warn("gateway returned a different reference", zap.String("gateway_reference", verified.Reference))
		verified.OK = false
	}

	decision := gate.Decide(verified, record.ExpectedAmount, record.ExpectedCurrency)
	now := s.clock.Now()
	raw := rawResponse(verified.Raw)

	var (
		outcome      *paymentdomain.Outcome
		transitioned bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := paymentdomain.OutcomeUpdate{
			ID:            record.ID,
			GatewayStatus: verified.Status,
			Raw:           raw,
			VerifiedAt:    now,
		}
		if decision.Accepted {
			paidAt := now
			if verified.PaidAt != nil && !verified.PaidAt.IsZero() {
				paidAt = verified.PaidAt.UTC()
			}
			update.Status = paymentdomain.StatusSuccess
			update.PaidAt = &paidAt
		} else {
			update.Status = paymentdomain.StatusFailed
			update.FailureReason = string(decision.Reason)
		}

		updated, err := s.repo.UpdateOutcome(ctx, tx, update)
		if err != nil {
			return err
		}
		if !updated {
			// Another reconciliation committed SUCCESS first.
			stored, err := s.repo.FindByReference(ctx, tx, ref)
			if err != nil {
				return err
			}
			if stored == nil {
				return paymentdomain.ErrPaymentNotFound
			}
			outcome = successOutcome(stored, trigger, true)
			return nil
		}

		if update.Status == paymentdomain.StatusSuccess {
			if err := s.enrollments.MarkEnrollmentPaid(ctx, tx, record.SubjectID, *update.PaidAt); err != nil {
				return fmt.Errorf("mark enrollment paid: %w", err)
			}
		}

		record.Status = update.Status
		record.PaidAt = update.PaidAt
		record.GatewayStatus = update.GatewayStatus
		record.FailureReason = update.FailureReason
		transitioned = true
		outcome = &paymentdomain.Outcome{
			Reference:     ref,
			Status:        update.Status,
			PaidAt:        update.PaidAt,
			Reason:        decision.Reason,
			GatewayStatus: verified.Status,
			Trigger:       trigger,
		}
		return nil
	})
	if err != nil {
		log.Error("failed to persist reconciliation", zap.Error(err))
		return nil, err
	}

	if !transitioned {
		s.obsMetrics.RecordReconciliation(ctx, string(trigger), "already_succeeded", "")
		return outcome, nil
	}

	if outcome.Status == paymentdomain.StatusSuccess {
		log.Info("payment reconciled", zap.Time("paid_at", *outcome.PaidAt))
		s.obsMetrics.RecordReconciliation(ctx, string(trigger), "success", "")
		s.publish(ctx, log, paymentdomain.EventTypePaymentSucceeded, record, outcome)
		return outcome, nil
	}

	log.Warn("payment rejected",
		zap.String("reason", string(decision.Reason)),
		zap.String("gateway_status", verified.Status),
		zap.Int64("expected_amount", record.ExpectedAmount),
		zap.Int64("gateway_amount", verified.AmountMinorUnits),
		zap.String("expected_currency", record.ExpectedCurrency),
		zap.String("gateway_currency", verified.Currency),
	)
	s.obsMetrics.RecordReconciliation(ctx, string(trigger), "failed", string(decision.Reason))
	s.publish(ctx, log, paymentdomain.EventTypePaymentFailed, record, outcome)
	return outcome, &paymentdomain.ReconciliationMismatch{
		Reference:     ref,
		Reason:        decision.Reason,
		GatewayStatus: verified.Status,
	}
}

// Checkout prices the enrollment, opens a gateway transaction and stores
// the PENDING record with the quote locked in.
func (s *Service) Checkout(ctx context.Context, req paymentdomain.CheckoutRequest) (*paymentdomain.CheckoutResult, error) {
	email := strings.TrimSpace(req.Email)
	if req.UserID == 0 || req.SubjectID == 0 || email == "" {
		return nil, paymentdomain.ErrInvalidRequest
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, paymentdomain.ErrInvalidRequest
	}

	enrollment, err := s.enrollments.FindByID(ctx, s.db, req.SubjectID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil || enrollment.UserID != req.UserID {
		return nil, enrollmentdomain.ErrEnrollmentNotFound
	}
	if enrollment.IsPaid {
		return nil, paymentdomain.ErrAlreadyPaid
	}

	quote, err := s.pricing.Quote(ctx)
	if err != nil {
		return nil, err
	}
	if quote.Phase == pricingdomain.PhaseClosed {
		s.obsMetrics.RecordCheckout(ctx, string(quote.Phase), "closed")
		return nil, paymentdomain.ErrRegistrationClosed
	}

	ref, err := s.refs.Create(reference.DefaultPrefix)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{}
	maps.Copy(metadata, req.Metadata)
	metadata["subject_id"] = req.SubjectID.String()
	metadata["user_id"] = req.UserID.String()
	metadata["pricing_phase"] = string(quote.Phase)

	start := time.Now()
	initialized, err := s.gateway.InitializeTransaction(ctx, paymentdomain.InitializeRequest{
		Email:            email,
		AmountMinorUnits: quote.AmountMinorUnits,
		Currency:         quote.Currency,
		Reference:        ref,
		CallbackURL:      s.callbackURL,
		Metadata:         metadata,
	})
	s.obsMetrics.ObserveGatewayCall(ctx, s.gateway.Provider(), "initialize", gatewayResult(err), time.Since(start))
	if err != nil {
		s.obsMetrics.RecordCheckout(ctx, string(quote.Phase), "gateway_error")
		return nil, fmt.Errorf("initialize %s: %w", ref, err)
	}

	now := s.clock.Now()
	record := &paymentdomain.PaymentRecord{
		ID:               s.genID.Generate(),
		Reference:        ref,
		UserID:           req.UserID,
		SubjectID:        req.SubjectID,
		Email:            email,
		ExpectedAmount:   quote.AmountMinorUnits,
		ExpectedCurrency: quote.Currency,
		PricingPhase:     string(quote.Phase),
		Status:           paymentdomain.StatusPending,
		AuthorizationURL: initialized.AuthorizationURL,
		AccessCode:       initialized.AccessCode,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.obsMetrics.RecordCheckout(ctx, string(quote.Phase), "duplicate_reference")
			return nil, fmt.Errorf("insert %s: %w", ref, paymentdomain.ErrDuplicateReference)
		}
		return nil, err
	}

	logger.WithPayment(logger.WithContext(ctx, s.log), ref, "checkout").Info("payment initialized",
		zap.String("pricing_phase", record.PricingPhase),
		zap.Int64("expected_amount", record.ExpectedAmount),
	)
	s.obsMetrics.RecordCheckout(ctx, string(quote.Phase), "ok")

	return &paymentdomain.CheckoutResult{
		Reference:        ref,
		AuthorizationURL: initialized.AuthorizationURL,
		AccessCode:       initialized.AccessCode,
		AmountMinorUnits: record.ExpectedAmount,
		Currency:         record.ExpectedCurrency,
		PricingPhase:     record.PricingPhase,
	}, nil
}

func (s *Service) GetByReference(ctx context.Context, ref string) (*paymentdomain.PaymentRecord, error) {
	ref = strings.TrimSpace(ref)
	if !reference.Valid(ref) {
		return nil, paymentdomain.ErrInvalidReference
	}
	record, err := s.repo.FindByReference(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	return record, nil
}

// ListReverifyCandidates returns PENDING payments created between maxAge and olderThan ago.
func (s *Service) ListReverifyCandidates(ctx context.Context, olderThan, maxAge time.Duration, limit int) ([]paymentdomain.PaymentRecord, error) {
	if limit <= 0 || olderThan < 0 || maxAge <= olderThan {
		return nil, paymentdomain.ErrInvalidRequest
	}
	now := s.clock.Now()
	return s.repo.ListReverifyCandidates(ctx, s.db, now.Add(-olderThan), now.Add(-maxAge), limit)
}

func (s *Service) verify(ctx context.Context, ref string) (paymentdomain.VerifyResult, error) {
	start := time.Now()
	verified, err := s.gateway.VerifyTransaction(ctx, ref)
	s.obsMetrics.ObserveGatewayCall(ctx, s.gateway.Provider(), "verify", gatewayResult(err), time.Since(start))
	return verified, err
}

func (s *Service) publish(ctx context.Context, log *zap.Logger, eventType string, record *paymentdomain.PaymentRecord, outcome *paymentdomain.Outcome) {
	event := paymentdomain.Event{
		Type:       eventType,
		Reference:  record.Reference,
		PaymentID:  record.ID.String(),
		SubjectID:  record.SubjectID.String(),
		UserID:     record.UserID.String(),
		Status:     outcome.Status,
		Reason:     outcome.Reason,
		Amount:     record.ExpectedAmount,
		Currency:   record.ExpectedCurrency,
		PaidAt:     outcome.PaidAt,
		Trigger:    outcome.Trigger,
		OccurredAt: s.clock.Now(),
	}
	if err := s.publisher.Publish(ctx, eventType, event); err != nil {
		log.Warn("failed to publish payment event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func successOutcome(record *paymentdomain.PaymentRecord, trigger paymentdomain.Trigger, already bool) *paymentdomain.Outcome {
	return &paymentdomain.Outcome{
		Reference:        record.Reference,
		Status:           paymentdomain.StatusSuccess,
		PaidAt:           record.PaidAt,
		AlreadySucceeded: already,
		GatewayStatus:    record.GatewayStatus,
		Trigger:          trigger,
	}
}

func rawResponse(raw []byte) datatypes.JSON {
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return datatypes.JSON(raw)
}

func gatewayResult(err error) string {
	if err == nil {
		return "ok"
	}
	var gwErr *paymentdomain.GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.Retryable() {
			return "retryable_error"
		}
		return "error"
	}
	var cfgErr *paymentdomain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return "config_error"
	}
	return "error"
}
