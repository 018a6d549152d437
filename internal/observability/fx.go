package observability

import (
	"github.com/smallbiznis/enrollpay/internal/observability/logger"
	"github.com/smallbiznis/enrollpay/internal/observability/metrics"
	"github.com/smallbiznis/enrollpay/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		NewConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	fx.Invoke(start),
)

// start forces the tracer provider and the scheduler collectors to be built
// even when no component asks for them directly.
func start(_ *sdktrace.TracerProvider, cfg metrics.Config) {
	metrics.SchedulerWithConfig(cfg)
}
