package observability

import (
	"strings"

	"github.com/smallbiznis/enrollpay/internal/config"
	"github.com/smallbiznis/enrollpay/internal/observability/logger"
	"github.com/smallbiznis/enrollpay/internal/observability/metrics"
	"github.com/smallbiznis/enrollpay/internal/observability/tracing"
)

const defaultServiceName = "enrollpay"

// Config is the slice of the application config shared by the logger,
// tracer and meter providers.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	// Debug enables verbose request logs, stack traces and gin debug mode.
	Debug     bool
	Telemetry config.TelemetryConfig
}

func NewConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = defaultServiceName
	}
	return Config{
		ServiceName: name,
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		Debug:       cfg.Telemetry.LogLevel == "debug" || cfg.IsDevelopment(),
		Telemetry:   cfg.Telemetry,
	}
}

func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName: c.ServiceName,
		Environment: c.Environment,
		Version:     c.Version,
		Level:       c.Telemetry.LogLevel,
		Format:      c.Telemetry.LogFormat,
		Debug:       c.Debug,
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.Telemetry.OTLPEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.Telemetry.OTLPEndpoint,
		ExporterProtocol: c.Telemetry.OTLPProtocol,
		SamplingRatio:    c.Telemetry.SamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.Telemetry.OTLPEnabled,
		ExporterEndpoint: c.Telemetry.OTLPEndpoint,
		ExporterProtocol: c.Telemetry.OTLPProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
