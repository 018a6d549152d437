package scheduler

import (
	"time"

	"github.com/smallbiznis/enrollpay/internal/config"
)

// Config controls the re-verify sweeper.
type Config struct {
	RunInterval   time.Duration
	BatchSize     int
	MinAge        time.Duration
	MaxAge        time.Duration
	JobTimeout    time.Duration
	ItemTimeout   time.Duration
	LeaderLockKey string
	LeaderLockTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:   time.Minute,
		BatchSize:     50,
		MinAge:        5 * time.Minute,
		MaxAge:        72 * time.Hour,
		JobTimeout:    45 * time.Second,
		ItemTimeout:   20 * time.Second,
		LeaderLockKey: "enrollpay:scheduler:leader",
		LeaderLockTTL: 2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.MinAge <= 0 {
		c.MinAge = defaults.MinAge
	}
	if c.MaxAge <= c.MinAge {
		c.MaxAge = c.MinAge + defaults.MaxAge
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.ItemTimeout <= 0 {
		c.ItemTimeout = defaults.ItemTimeout
	}
	if c.LeaderLockKey == "" {
		c.LeaderLockKey = defaults.LeaderLockKey
	}
	if c.LeaderLockTTL <= 0 {
		c.LeaderLockTTL = defaults.LeaderLockTTL
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Scheduler.RunInterval,
		BatchSize:   cfg.Scheduler.BatchSize,
		MinAge:      cfg.Scheduler.MinAge,
		MaxAge:      cfg.Scheduler.MaxAge,
	}.withDefaults()
}
