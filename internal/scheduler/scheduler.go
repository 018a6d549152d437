package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/enrollpay/internal/authorization"
	"github.com/smallbiznis/enrollpay/internal/clock"
	obsmetrics "github.com/smallbiznis/enrollpay/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
	"github.com/smallbiznis/enrollpay/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobReverifyPending = "reverify_pending"

var (
	ErrInvalidConfig  = errors.New("scheduler_invalid_config")
	ErrLeadershipLost = errors.New("scheduler_leadership_lost")
)

type Params struct {
	fx.In

	Log        *zap.Logger
	PaymentSvc paymentdomain.Service
	AuthzSvc   authorization.Service `optional:"true"`
	Locker     *ratelimit.Locker     `optional:"true"`
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     Config `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	paymentSvc paymentdomain.Service
	authzSvc   authorization.Service
	locker     *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.PaymentSvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		paymentSvc: p.PaymentSvc,
		authzSvc:   p.AuthzSvc,
		locker:     p.Locker,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce performs a single sweep when this instance holds leadership.
func (s *Scheduler) RunOnce(parent context.Context) error {
	lease, leader, err := s.acquireLeadership(parent)
	if err != nil {
		return err
	}
	if !leader {
		obsmetrics.Scheduler().IncJobSkip(JobReverifyPending, obsmetrics.SchedulerSkipReasonNotLeader)
		return nil
	}
	defer lease.release()

	return s.runJob(parent, JobReverifyPending, s.cfg.BatchSize, s.cfg.JobTimeout, func(ctx context.Context) error {
		return s.reverifyPending(ctx, lease)
	})
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// leaderLease is a held leader lock. A nil lease means redis is not
// configured and every instance leads.
type leaderLease struct {
	locker *ratelimit.Locker
	key    string
	token  string
	ttl    time.Duration
	log    *zap.Logger
}

// renew pushes the lock expiry. A redis error keeps the sweep going; a lock
// that expired or moved to another instance stops it.
func (l *leaderLease) renew(ctx context.Context) error {
	if l == nil {
		return nil
	}
	ok, err := l.locker.Extend(ctx, l.key, l.token, l.ttl)
	if err != nil {
		l.log.Warn("failed to extend scheduler lock", zap.Error(err))
		return nil
	}
	if !ok {
		return ErrLeadershipLost
	}
	return nil
}

func (l *leaderLease) release() {
	if l == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.locker.Release(ctx, l.key, l.token); err != nil {
		l.log.Warn("failed to release scheduler lock", zap.Error(err))
	}
}

// acquireLeadership takes the redis leader lock. Without redis every
// instance is its own leader.
func (s *Scheduler) acquireLeadership(ctx context.Context) (*leaderLease, bool, error) {
	if s.locker == nil {
		return nil, true, nil
	}
	token, ok, err := s.locker.TryLock(ctx, s.cfg.LeaderLockKey, s.cfg.LeaderLockTTL)
	if err != nil {
		return nil, false, fmt.Errorf("leader lock: %w", err)
	}
	if !ok {
		s.log.Debug("another instance holds the scheduler lock")
		return nil, false, nil
	}
	return &leaderLease{
		locker: s.locker,
		key:    s.cfg.LeaderLockKey,
		token:  token,
		ttl:    s.cfg.LeaderLockTTL,
		log:    s.log,
	}, true, nil
}

func (s *Scheduler) authorizeSystem(ctx context.Context) error {
	if s.authzSvc == nil {
		return nil
	}
	return s.authzSvc.AuthorizeSystem(ctx, authorization.ObjectPayment, authorization.ActionPaymentReverify)
}
