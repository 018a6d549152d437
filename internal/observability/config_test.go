package observability

import (
	"testing"

	"github.com/smallbiznis/enrollpay/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(config.Config{
		AppName:     " ",
		AppVersion:  "1.4.0",
		Environment: "production",
		Telemetry: config.TelemetryConfig{
			LogLevel:      "info",
			LogFormat:     "json",
			OTLPEnabled:   true,
			OTLPEndpoint:  "otel:4317",
			OTLPProtocol:  "grpc",
			SamplingRatio: 0.25,
		},
	})

	assert.Equal(t, "enrollpay", cfg.ServiceName)
	assert.False(t, cfg.Debug)

	tr := cfg.Tracing()
	assert.True(t, tr.Enabled)
	assert.Equal(t, "1.4.0", tr.ServiceVersion)
	assert.Equal(t, "otel:4317", tr.ExporterEndpoint)
	assert.Equal(t, 0.25, tr.SamplingRatio)

	m := cfg.Metrics()
	assert.Equal(t, "production", m.Environment)
	assert.Equal(t, "grpc", m.ExporterProtocol)

	l := cfg.Logger()
	assert.Equal(t, "info", l.Level)
	assert.Equal(t, "enrollpay", l.ServiceName)
}

func TestNewConfigDebug(t *testing.T) {
	assert.True(t, NewConfig(config.Config{Environment: "test"}).Debug)
	assert.True(t, NewConfig(config.Config{
		Environment: "production",
		Telemetry:   config.TelemetryConfig{LogLevel: "debug"},
	}).Logger().Debug)
}
