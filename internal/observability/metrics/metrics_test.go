package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("trigger", "webhook"),
		attribute.String("reference", "ENR_01JB8M3Z5X7Q2W4E6R8T0Y2S4V"),
		attribute.String("user_id", "42"),
		attribute.String("reason", "amount_mismatch"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("trigger"), attrs[0].Key)
	assert.Equal(t, attribute.Key("reason"), attrs[1].Key)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordReconciliation(ctx, "user", "success", "")
	m.ObserveGatewayCall(ctx, "paystack", "verify", "ok", time.Second)
	m.RecordWebhook(ctx, "paystack", "charge.success", "accepted")
	m.RecordCheckout(ctx, "EARLY_BIRD", "ok")
	m.RecordRateLimitAllowed(ctx, "verify")
	m.RecordRateLimitDenied(ctx, "verify", "token_bucket")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "enrollpay"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordReconciliation(context.Background(), "admin", "failed", "currency_mismatch")
}
