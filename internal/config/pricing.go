package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

// PricingConfig is the enrollment fee schedule.
type PricingConfig struct {
	BaseAmountMinorUnits int64   `mapstructure:"baseAmountMinorUnits"`
	Currency             string  `mapstructure:"currency"`
	DiscountPercent      float64 `mapstructure:"discountPercent"`
	EarlyBirdCloses      string  `mapstructure:"earlyBirdCloses"`
	RegistrationCloses   string  `mapstructure:"registrationCloses"`
	Timezone             string  `mapstructure:"timezone"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		BaseAmountMinorUnits: 19_500_000,
		Currency:             "NGN",
		DiscountPercent:      15,
		EarlyBirdCloses:      "2026-11-30",
		RegistrationCloses:   "2027-01-15",
		Timezone:             "Africa/Lagos",
	}
}

// Location resolves the schedule timezone.
func (c PricingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(strings.TrimSpace(c.Timezone))
}

// EarlyBirdCloseDate returns the early bird close date at midnight in the schedule timezone.
func (c PricingConfig) EarlyBirdCloseDate() (time.Time, error) {
	return c.parseDate(c.EarlyBirdCloses)
}

// RegistrationCloseDate returns the registration close date at midnight in the schedule timezone.
func (c PricingConfig) RegistrationCloseDate() (time.Time, error) {
	return c.parseDate(c.RegistrationCloses)
}

func (c PricingConfig) parseDate(raw string) (time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation(dateLayout, strings.TrimSpace(raw), loc)
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

// NewStaticPricingConfigHolder wraps a fixed schedule, used by tests and tooling.
func NewStaticPricingConfigHolder(cfg PricingConfig) (*PricingConfigHolder, error) {
	if err := ValidatePricingConfig(cfg); err != nil {
		return nil, err
	}
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func NewPricingConfigHolder() (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/enrollpay/config")
	v.AddConfigPath("/etc/enrollpay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ENROLLPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.baseAmountMinorUnits", defaults.BaseAmountMinorUnits)
	v.SetDefault("pricing.currency", defaults.Currency)
	v.SetDefault("pricing.discountPercent", defaults.DiscountPercent)
	v.SetDefault("pricing.earlyBirdCloses", defaults.EarlyBirdCloses)
	v.SetDefault("pricing.registrationCloses", defaults.RegistrationCloses)
	v.SetDefault("pricing.timezone", defaults.Timezone)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := ValidatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated PricingConfig
			if err := v.UnmarshalKey("pricing", &updated); err != nil {
				log.Printf("[pricing-config] reload failed: %v", err)
				return
			}
			if err := ValidatePricingConfig(updated); err != nil {
				log.Printf("[pricing-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[pricing-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func ValidatePricingConfig(cfg PricingConfig) error {
	if cfg.BaseAmountMinorUnits <= 0 {
		return errors.New("pricing.baseAmountMinorUnits must be positive")
	}
	if len(strings.TrimSpace(cfg.Currency)) != 3 {
		return errors.New("pricing.currency must be a 3 letter code")
	}
	if cfg.DiscountPercent < 0 || cfg.DiscountPercent >= 100 {
		return errors.New("pricing.discountPercent must be in [0, 100)")
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("pricing.timezone: %w", err)
	}
	early, err := cfg.EarlyBirdCloseDate()
	if err != nil {
		return fmt.Errorf("pricing.earlyBirdCloses: %w", err)
	}
	registration, err := cfg.RegistrationCloseDate()
	if err != nil {
		return fmt.Errorf("pricing.registrationCloses: %w", err)
	}
	if registration.Before(early) {
		return errors.New("pricing.registrationCloses must not be before pricing.earlyBirdCloses")
	}
	return nil
}
