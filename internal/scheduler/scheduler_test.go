package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	authdomain "github.com/smallbiznis/enrollpay/internal/auth/domain"
	"github.com/smallbiznis/enrollpay/internal/authorization"
	"github.com/smallbiznis/enrollpay/internal/clock"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
	"github.com/smallbiznis/enrollpay/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePayments struct {
	mu         sync.Mutex
	candidates []paymentdomain.PaymentRecord
	results    map[string]error
	already    map[string]bool
	block      bool

	listArgs   []any
	reconciled []string
	triggers   []paymentdomain.Trigger
}

func (f *fakePayments) Reconcile(ctx context.Context, reference string, trigger paymentdomain.Trigger) (*paymentdomain.Outcome, error) {
	f.mu.Lock()
	f.reconciled = append(f.reconciled, reference)
	f.triggers = append(f.triggers, trigger)
	block := f.block
	err := f.results[reference]
	already := f.already[reference]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &paymentdomain.Outcome{Reference: reference, Status: paymentdomain.StatusSuccess, AlreadySucceeded: already}, nil
}

func (f *fakePayments) Checkout(ctx context.Context, req paymentdomain.CheckoutRequest) (*paymentdomain.CheckoutResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePayments) GetByReference(ctx context.Context, reference string) (*paymentdomain.PaymentRecord, error) {
	return nil, paymentdomain.ErrPaymentNotFound
}

func (f *fakePayments) ListReverifyCandidates(ctx context.Context, olderThan, maxAge time.Duration, limit int) ([]paymentdomain.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listArgs = []any{olderThan, maxAge, limit}
	return f.candidates, nil
}

type denyAll struct{}

func (denyAll) Authorize(context.Context, authdomain.Principal, string, string, snowflake.ID) error {
	return authorization.ErrForbidden
}

func (denyAll) AuthorizeSystem(context.Context, string, string) error {
	return authorization.ErrForbidden
}

func newTestScheduler(t *testing.T, payments *fakePayments, mutate func(p *Params)) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: zaptest.NewLogger(t), Enforcer: enforcer})

	p := Params{
		Log:        zaptest.NewLogger(t),
		PaymentSvc: payments,
		AuthzSvc:   authz,
		GenID:      node,
		Clock:      clock.NewFakeClock(time.Date(2026, time.November, 2, 10, 0, 0, 0, time.UTC)),
		Config:     Config{BatchSize: 10, MinAge: 5 * time.Minute, MaxAge: 72 * time.Hour},
	}
	if mutate != nil {
		mutate(&p)
	}
	sched, err := New(p)
	require.NoError(t, err)
	return sched
}

func records(refs ...string) []paymentdomain.PaymentRecord {
	out := make([]paymentdomain.PaymentRecord, 0, len(refs))
	for i, ref := range refs {
		out = append(out, paymentdomain.PaymentRecord{ID: snowflake.ID(i + 1), Reference: ref, Status: paymentdomain.StatusPending})
	}
	return out
}

func TestRunOnceReconcilesEveryCandidate(t *testing.T) {
	payments := &fakePayments{
		candidates: records("ENR_A", "ENR_B", "ENR_C", "ENR_D"),
		results: map[string]error{
			"ENR_B": &paymentdomain.ReconciliationMismatch{Reference: "ENR_B", Reason: paymentdomain.ReasonAmountMismatch},
			"ENR_C": paymentdomain.ErrPaymentNotFound,
		},
		already: map[string]bool{"ENR_D": true},
	}
	sched := newTestScheduler(t, payments, nil)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, []string{"ENR_A", "ENR_B", "ENR_C", "ENR_D"}, payments.reconciled)
	for _, trigger := range payments.triggers {
		assert.Equal(t, paymentdomain.TriggerScheduler, trigger)
	}
	assert.Equal(t, []any{5 * time.Minute, 72 * time.Hour, 10}, payments.listArgs)
}

func TestRunOnceContinuesPastGatewayErrors(t *testing.T) {
	gatewayErr := &paymentdomain.GatewayError{Op: "verify", StatusCode: 503}
	payments := &fakePayments{
		candidates: records("ENR_A", "ENR_B", "ENR_C"),
		results:    map[string]error{"ENR_A": gatewayErr},
	}
	sched := newTestScheduler(t, payments, nil)

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gatewayErr)
	assert.Contains(t, err.Error(), JobReverifyPending)
	assert.Len(t, payments.reconciled, 3)
}

func TestRunOnceTreatsTimeoutAsSoft(t *testing.T) {
	payments := &fakePayments{candidates: records("ENR_A", "ENR_B"), block: true}
	sched := newTestScheduler(t, payments, func(p *Params) {
		p.Config.JobTimeout = 50 * time.Millisecond
		p.Config.ItemTimeout = time.Second
	})

	assert.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, []string{"ENR_A"}, payments.reconciled)
}

func TestRunOnceRequiresSystemPermission(t *testing.T) {
	payments := &fakePayments{candidates: records("ENR_A")}
	sched := newTestScheduler(t, payments, func(p *Params) { p.AuthzSvc = denyAll{} })

	err := sched.RunOnce(context.Background())
	assert.ErrorIs(t, err, authorization.ErrForbidden)
	assert.Empty(t, payments.reconciled)
}

func TestRunOnceFailsWhenLeaderLockUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	payments := &fakePayments{candidates: records("ENR_A")}
	sched := newTestScheduler(t, payments, func(p *Params) { p.Locker = ratelimit.NewLocker(client) })

	err := sched.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Empty(t, payments.reconciled)
}

// lockRedis answers the leader lock commands; extend succeeds extendsLeft times.
type lockRedis struct {
	redis.Cmdable

	mu          sync.Mutex
	extendsLeft int
	extends     int
	releases    int
}

func (r *lockRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (r *lockRedis) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	// extend passes token and ttl, release only the token
	if len(args) == 2 {
		r.extends++
		if r.extendsLeft > 0 {
			r.extendsLeft--
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	}
	r.releases++
	return redis.NewCmdResult(int64(1), nil)
}

func TestRunOnceRenewsLeaderLockBetweenItems(t *testing.T) {
	client := &lockRedis{extendsLeft: 10}
	payments := &fakePayments{candidates: records("ENR_A", "ENR_B", "ENR_C")}
	sched := newTestScheduler(t, payments, func(p *Params) { p.Locker = ratelimit.NewLocker(client) })

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, []string{"ENR_A", "ENR_B", "ENR_C"}, payments.reconciled)
	assert.Equal(t, 2, client.extends)
	assert.Equal(t, 1, client.releases)
}

func TestRunOnceStopsWhenLeadershipLost(t *testing.T) {
	client := &lockRedis{extendsLeft: 1}
	payments := &fakePayments{candidates: records("ENR_A", "ENR_B", "ENR_C")}
	sched := newTestScheduler(t, payments, func(p *Params) { p.Locker = ratelimit.NewLocker(client) })

	err := sched.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrLeadershipLost)
	assert.Equal(t, []string{"ENR_A", "ENR_B"}, payments.reconciled)
	assert.Equal(t, 1, client.releases)
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	payments := &fakePayments{candidates: records("ENR_A")}
	sched := newTestScheduler(t, payments, func(p *Params) { p.Config.RunInterval = time.Hour })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.RunForever(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		payments.mu.Lock()
		defer payments.mu.Unlock()
		return len(payments.reconciled) == 1
	}, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunForever did not stop after cancel")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{MinAge: time.Hour, MaxAge: time.Minute}.withDefaults()
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, time.Hour, cfg.MinAge)
	assert.Equal(t, 73*time.Hour, cfg.MaxAge)

	long := Config{MinAge: 96 * time.Hour}.withDefaults()
	assert.Greater(t, long.MaxAge, long.MinAge)
	assert.Equal(t, 168*time.Hour, long.MaxAge)

	kept := Config{MinAge: time.Minute, MaxAge: time.Hour}.withDefaults()
	assert.Equal(t, time.Hour, kept.MaxAge)
	assert.NotEmpty(t, cfg.LeaderLockKey)

	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
