package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "gateway", err: fmt.Errorf("reconcile: %w", &paymentdomain.GatewayError{Op: "verify", StatusCode: 502}), want: SchedulerJobReasonGateway},
		{name: "mismatch", err: &paymentdomain.ReconciliationMismatch{Reason: paymentdomain.ReasonAmountMismatch}, want: SchedulerJobReasonMismatch},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestIsSchedulerErrorRetryable(t *testing.T) {
	assert.True(t, IsSchedulerErrorRetryable(&paymentdomain.GatewayError{Op: "verify"}))
	assert.True(t, IsSchedulerErrorRetryable(context.DeadlineExceeded))
	assert.False(t, IsSchedulerErrorRetryable(&paymentdomain.ReconciliationMismatch{}))
	assert.False(t, IsSchedulerErrorRetryable(nil))
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSchedulerMetrics(registry, Config{ServiceName: "enrollpay", Environment: "test"})

	m.AddBatchProcessed("reverify_pending", "success", 3)
	m.AddBatchProcessed("reverify_pending", "success", 0)
	m.IncJobSkip("reverify_pending", SchedulerSkipReasonNotLeader)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.batchProcessed.WithLabelValues("reverify_pending", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobSkips.WithLabelValues("reverify_pending", SchedulerSkipReasonNotLeader)))
}
