package scheduler

import (
	"context"
	"errors"

	obsmetrics "github.com/smallbiznis/enrollpay/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
	"go.uber.org/zap"
)

const (
	outcomeSucceeded        = "succeeded"
	outcomeAlreadySucceeded = "already_succeeded"
	outcomeFailed           = "failed"
	outcomeNotFound         = "not_found"
	outcomeError            = "error"
)

// ReverifyPendingJob reconciles PENDING payments whose webhook never arrived.
// FAILED payments are left for staff; a failing item never stops the batch.
func (s *Scheduler) ReverifyPendingJob(ctx context.Context) error {
	return s.reverifyPending(ctx, nil)
}

// reverifyPending renews the leader lease before every item after the first
// and stops the batch once leadership is lost.
func (s *Scheduler) reverifyPending(ctx context.Context, lease *leaderLease) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobReverifyPending, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	if err := s.authorizeSystem(ctx); err != nil {
		return err
	}

	candidates, err := s.paymentSvc.ListReverifyCandidates(ctx, s.cfg.MinAge, s.cfg.MaxAge, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	schedMetrics := obsmetrics.Scheduler()
	counts := map[string]int{}
	var jobErr error
	for i, candidate := range candidates {
		if ctx.Err() != nil {
			jobErr = errors.Join(jobErr, ctx.Err())
			break
		}
		if i > 0 {
			if err := lease.renew(ctx); err != nil {
				s.logger(ctx).Warn("scheduler lock lost, stopping batch", zap.Int("remaining", len(candidates)-i))
				jobErr = errors.Join(jobErr, err)
				break
			}
		}

		outcome, err := s.reverifyOne(ctx, candidate.Reference)
		counts[outcome]++
		run.AddProcessed(1)
		if outcome == outcomeError {
			s.logSchedulerError(ctx, run, "scheduler.reverify.failed", JobReverifyPending, candidate.Reference, err)
			jobErr = errors.Join(jobErr, err)
		}
	}

	for outcome, count := range counts {
		schedMetrics.AddBatchProcessed(JobReverifyPending, outcome, count)
	}
	return jobErr
}

func (s *Scheduler) reverifyOne(ctx context.Context, reference string) (string, error) {
	itemCtx, cancel := context.WithTimeout(ctx, s.cfg.ItemTimeout)
	defer cancel()

	outcome, err := s.paymentSvc.Reconcile(itemCtx, reference, paymentdomain.TriggerScheduler)
	var mismatch *paymentdomain.ReconciliationMismatch
	switch {
	case err == nil && outcome.AlreadySucceeded:
		return outcomeAlreadySucceeded, nil
	case err == nil:
		s.logger(ctx).Info("scheduler.reverify.reconciled", zap.String("reference", reference))
		return outcomeSucceeded, nil
	case errors.As(err, &mismatch):
		return outcomeFailed, nil
	case errors.Is(err, paymentdomain.ErrPaymentNotFound):
		return outcomeNotFound, nil
	default:
		return outcomeError, err
	}
}
