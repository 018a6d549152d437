package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsGatewayEnv(t *testing.T) {
	t.Setenv("GATEWAY_SECRET_KEY", " sk_test_123 ")
	t.Setenv("GATEWAY_BASE_URL", "http://gateway.local/")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("GATEWAY_MAX_RETRIES", "not-a-number")

	cfg := Load()

	assert.Equal(t, "sk_test_123", cfg.Gateway.SecretKey)
	assert.Equal(t, "http://gateway.local", cfg.Gateway.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 2, cfg.Gateway.MaxRetries)
	assert.Equal(t, "paystack", cfg.Gateway.Provider)
}

func TestLoadTelemetryDefaultsFollowEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", " WARN ")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")

	cfg := Load()
	assert.Equal(t, "warn", cfg.Telemetry.LogLevel)
	assert.Equal(t, "json", cfg.Telemetry.LogFormat)
	assert.True(t, cfg.Telemetry.OTLPEnabled)
	assert.Equal(t, 0.5, cfg.Telemetry.SamplingRatio)
	assert.Equal(t, 2*time.Second, cfg.RabbitMQ.DialTimeout)

	t.Setenv("ENVIRONMENT", "local")
	assert.False(t, Load().Telemetry.OTLPEnabled)

	t.Setenv("OTEL_ENABLED", "true")
	assert.True(t, Load().Telemetry.OTLPEnabled)
}

func TestValidateReportsMissingSecrets(t *testing.T) {
	err := Config{Environment: "production"}.Validate()
	require.Error(t, err)

	var missing *MissingError
	assert.True(t, errors.As(err, &missing))
	assert.Contains(t, err.Error(), "GATEWAY_SECRET_KEY")
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
	assert.Contains(t, err.Error(), "GATEWAY_CALLBACK_URL")

	ok := Config{AuthJWTSecret: "jwt", Gateway: GatewayConfig{SecretKey: "sk"}}
	assert.NoError(t, ok.Validate())
}

func TestValidatePricingConfig(t *testing.T) {
	assert.NoError(t, ValidatePricingConfig(DefaultPricingConfig()))

	cases := map[string]func(*PricingConfig){
		"zero base":         func(c *PricingConfig) { c.BaseAmountMinorUnits = 0 },
		"bad currency":      func(c *PricingConfig) { c.Currency = "NAIRA" },
		"discount too high": func(c *PricingConfig) { c.DiscountPercent = 100 },
		"bad timezone":      func(c *PricingConfig) { c.Timezone = "Mars/Olympus" },
		"bad date":          func(c *PricingConfig) { c.EarlyBirdCloses = "30/11/2026" },
		"dates reversed":    func(c *PricingConfig) { c.EarlyBirdCloses = "2027-02-01" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultPricingConfig()
			mutate(&cfg)
			assert.Error(t, ValidatePricingConfig(cfg))
		})
	}
}

func TestStaticPricingConfigHolder(t *testing.T) {
	cfg := DefaultPricingConfig()
	cfg.DiscountPercent = 10

	holder, err := NewStaticPricingConfigHolder(cfg)
	require.NoError(t, err)
	assert.Equal(t, 10.0, holder.Get().DiscountPercent)

	early, err := holder.Get().EarlyBirdCloseDate()
	require.NoError(t, err)
	assert.Equal(t, "Africa/Lagos", early.Location().String())
}
