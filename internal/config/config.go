package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	AuthJWTSecret string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Gateway   GatewayConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
	Receipt   ReceiptConfig
	Telemetry TelemetryConfig
}

// TelemetryConfig covers logging, tracing and metrics export.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OTLPEnabled   bool
	OTLPEndpoint  string
	OTLPProtocol  string
	SamplingRatio float64
}

type GatewayConfig struct {
	Provider    string
	BaseURL     string
	SecretKey   string
	CallbackURL string
	Timeout     time.Duration
	MaxRetries  int
	MaxElapsed  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type RabbitMQConfig struct {
	URL         string
	Exchange    string
	DialTimeout time.Duration
}

func (c RabbitMQConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

type RateLimitConfig struct {
	Enabled         bool
	VerifyUserRate  float64
	VerifyUserBurst int
	PublicIPRate    float64
	PublicIPBurst   int
	PublicIPEntries int
}

type SchedulerConfig struct {
	Enabled     bool
	RunInterval time.Duration
	BatchSize   int
	MinAge      time.Duration
	MaxAge      time.Duration
}

// ReceiptConfig is printed on payment receipts.
type ReceiptConfig struct {
	IssuerName  string
	IssuerEmail string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "enrollpay"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   getenv("ENVIRONMENT", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		NodeID:        int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "enrollpay"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		Gateway: GatewayConfig{
			Provider:    strings.ToLower(getenv("GATEWAY_PROVIDER", "paystack")),
			BaseURL:     strings.TrimRight(getenv("GATEWAY_BASE_URL", "https://api.paystack.co"), "/"),
			SecretKey:   strings.TrimSpace(getenv("GATEWAY_SECRET_KEY", "")),
			CallbackURL: strings.TrimSpace(getenv("GATEWAY_CALLBACK_URL", "")),
			Timeout:     getenvDuration("GATEWAY_TIMEOUT", 15*time.Second),
			MaxRetries:  getenvInt("GATEWAY_MAX_RETRIES", 2),
			MaxElapsed:  getenvDuration("GATEWAY_MAX_ELAPSED", 30*time.Second),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL:         strings.TrimSpace(getenv("RABBITMQ_URL", "")),
			Exchange:    getenv("RABBITMQ_EXCHANGE", "enrollpay.events"),
			DialTimeout: getenvDuration("RABBITMQ_DIAL_TIMEOUT", 2*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getenvBool("RATE_LIMIT_ENABLED", true),
			VerifyUserRate:  getenvFloat("RATE_LIMIT_VERIFY_USER_RATE", 0.5),
			VerifyUserBurst: getenvInt("RATE_LIMIT_VERIFY_USER_BURST", 5),
			PublicIPRate:    getenvFloat("RATE_LIMIT_PUBLIC_IP_RATE", 2),
			PublicIPBurst:   getenvInt("RATE_LIMIT_PUBLIC_IP_BURST", 20),
			PublicIPEntries: getenvInt("RATE_LIMIT_PUBLIC_IP_ENTRIES", 10000),
		},
		Scheduler: SchedulerConfig{
			Enabled:     getenvBool("SCHEDULER_ENABLED", true),
			RunInterval: getenvDuration("SCHEDULER_RUN_INTERVAL", time.Minute),
			BatchSize:   getenvInt("SCHEDULER_BATCH_SIZE", 50),
			MinAge:      getenvDuration("SCHEDULER_MIN_AGE", 5*time.Minute),
			MaxAge:      getenvDuration("SCHEDULER_MAX_AGE", 72*time.Hour),
		},
		Receipt: ReceiptConfig{
			IssuerName:  getenv("RECEIPT_ISSUER_NAME", "Admissions Office"),
			IssuerEmail: strings.TrimSpace(getenv("RECEIPT_ISSUER_EMAIL", "")),
		},
	}
	cfg.Telemetry = TelemetryConfig{
		LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		OTLPEnabled:   getenvBool("OTEL_ENABLED", !cfg.IsDevelopment()),
		OTLPEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
		OTLPProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
		SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// IsDevelopment reports local, test and dev deployments.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

// Validate reports secrets that must be present before the service can accept traffic.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Gateway.SecretKey) == "" {
		errs = append(errs, &MissingError{Key: "GATEWAY_SECRET_KEY"})
	}
	if strings.TrimSpace(c.AuthJWTSecret) == "" {
		errs = append(errs, &MissingError{Key: "AUTH_JWT_SECRET"})
	}
	if c.IsProduction() && strings.TrimSpace(c.Gateway.CallbackURL) == "" {
		errs = append(errs, &MissingError{Key: "GATEWAY_CALLBACK_URL"})
	}
	return errors.Join(errs...)
}

// MissingError reports a required configuration value that is absent.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("configuration: %s is required", e.Key)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
