package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	reconciliations  metric.Int64Counter
	gatewayDuration  metric.Float64Histogram
	webhooks         metric.Int64Counter
	checkouts        metric.Int64Counter
	rateLimitAllowed metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "enrollpay"
	}
	meter := provider.Meter(name)

	reconciliations, err := meter.Int64Counter("enrollpay_reconciliations_total",
		metric.WithDescription("Reconciliation attempts by trigger, outcome and reason."))
	if err != nil {
		return nil, err
	}
	gatewayDuration, err := meter.Float64Histogram("enrollpay_gateway_request_duration_seconds",
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30))
	if err != nil {
		return nil, err
	}
	webhooks, err := meter.Int64Counter("enrollpay_webhooks_total")
	if err != nil {
		return nil, err
	}
	checkouts, err := meter.Int64Counter("enrollpay_checkouts_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("enrollpay_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("enrollpay_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		reconciliations:  reconciliations,
		gatewayDuration:  gatewayDuration,
		webhooks:         webhooks,
		checkouts:        checkouts,
		rateLimitAllowed: rateLimitAllowed,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// RecordReconciliation counts one finished reconciliation.
func (m *Metrics) RecordReconciliation(ctx context.Context, trigger, outcome, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("trigger", strings.TrimSpace(trigger)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.reconciliations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// ObserveGatewayCall records gateway latency. result is "ok" or a low-cardinality error class.
func (m *Metrics) ObserveGatewayCall(ctx context.Context, provider, op, result string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("op", strings.TrimSpace(op)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.gatewayDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordWebhook counts webhook deliveries by how they were handled.
func (m *Metrics) RecordWebhook(ctx context.Context, provider, eventType, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.webhooks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCheckout counts checkout attempts by pricing phase and result.
func (m *Metrics) RecordCheckout(ctx context.Context, phase, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("phase", strings.TrimSpace(phase)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.checkouts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"trigger":     {},
	"outcome":     {},
	"reason":      {},
	"provider":    {},
	"op":          {},
	"result":      {},
	"event_type":  {},
	"phase":       {},
	"endpoint":    {},
	"method":      {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// References and user ids never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
