// Package config handles navigation configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all settings.
type Config struct {
	Navigation NavigationConfig `yaml:"navigation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// NavigationConfig is the snapshot the navigation core reads on each call.
type NavigationConfig struct {
	// TargetingThreshold is compared against the raw targeting layer when
	// fusing terrain.
	TargetingThreshold int `yaml:"targeting_threshold"`
	// CollisionThreshold is compared against the fused category value by
	// line-of-sight checks.
	CollisionThreshold int `yaml:"collision_threshold"`

	DashEnabled     bool    `yaml:"dash_enabled"`
	DashCost        float32 `yaml:"dash_cost"`
	DashMinDistance int     `yaml:"dash_min_distance"`
	DashMaxDistance int     `yaml:"dash_max_distance"`

	CacheCapacity int           `yaml:"cache_capacity"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`

	ExpansionBudgetDivisor int  `yaml:"expansion_budget_divisor"`
	MinExpansionNodes      int  `yaml:"min_expansion_nodes"`
	CompressFields         bool `yaml:"compress_fields"`

	StatsInterval   time.Duration `yaml:"stats_interval"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Navigation: DefaultNavigation(),
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9464",
		},
	}
}

// DefaultNavigation returns the default navigation snapshot.
func DefaultNavigation() NavigationConfig {
	return NavigationConfig{
		TargetingThreshold:     1,
		CollisionThreshold:     1,
		DashEnabled:            false,
		DashCost:               50,
		DashMinDistance:        2,
		DashMaxDistance:        6,
		CacheCapacity:          256,
		CacheTTL:               30 * time.Second,
		ExpansionBudgetDivisor: 10,
		MinExpansionNodes:      4096,
		CompressFields:         true,
		StatsInterval:          10 * time.Second,
		RefreshInterval:        250 * time.Millisecond,
	}
}

// Validation errors.
var (
	ErrInvalidDash     = errors.New("invalid dash settings")
	ErrInvalidCache    = errors.New("invalid cache settings")
	ErrInvalidBudget   = errors.New("invalid expansion budget")
	ErrInvalidInterval = errors.New("invalid interval")
)

// Validate checks the navigation settings for values the engine cannot use.
func (n NavigationConfig) Validate() error {
	if n.DashCost <= 0 {
		return fmt.Errorf("%w: dash_cost must be positive, got %v", ErrInvalidDash, n.DashCost)
	}
	if n.DashMinDistance < 1 || n.DashMaxDistance < n.DashMinDistance {
		return fmt.Errorf("%w: dash distance range [%d, %d]", ErrInvalidDash, n.DashMinDistance, n.DashMaxDistance)
	}
	if n.CacheCapacity < 1 {
		return fmt.Errorf("%w: cache_capacity must be at least 1, got %d", ErrInvalidCache, n.CacheCapacity)
	}
	if n.CacheTTL <= 0 {
		return fmt.Errorf("%w: cache_ttl must be positive, got %v", ErrInvalidCache, n.CacheTTL)
	}
	if n.ExpansionBudgetDivisor < 1 || n.MinExpansionNodes < 0 {
		return fmt.Errorf("%w: divisor %d, minimum %d", ErrInvalidBudget, n.ExpansionBudgetDivisor, n.MinExpansionNodes)
	}
	if n.StatsInterval <= 0 || n.RefreshInterval < 0 {
		return fmt.Errorf("%w: stats %v, refresh %v", ErrInvalidInterval, n.StatsInterval, n.RefreshInterval)
	}
	return nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Navigation.Validate(); err != nil {
		return fmt.Errorf("navigation: %w", err)
	}
	return nil
}
