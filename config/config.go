package config

import (
	"time"

	"github.com/kbukum/scopecache/logger"
)

// Default values applied by ApplyDefaults.
const (
	DefaultPruneInterval  = 30 * time.Second
	DefaultSweepBatchSize = 256
)

// Config is the root configuration of a service embedding the cache.
type Config struct {
	Name        string          `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string          `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Cache       CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Logging     logger.Config   `yaml:"logging" mapstructure:"logging"`
	Telemetry   TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	Admin       AdminConfig     `yaml:"admin" mapstructure:"admin"`
}

// CacheConfig configures the scope cache and its pruner.
type CacheConfig struct {
	// PruneInterval is the time between pruning sweeps.
	PruneInterval time.Duration `yaml:"prune_interval" mapstructure:"prune_interval" validate:"gt=0"`
	// SweepBatchSize bounds how many dead scopes one lock hold removes.
	SweepBatchSize int `yaml:"sweep_batch_size" mapstructure:"sweep_batch_size" validate:"gte=1"`
	// DeactivateReplaced deactivates instances superseded by a later Remember.
	DeactivateReplaced bool `yaml:"deactivate_replaced" mapstructure:"deactivate_replaced"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// AdminConfig configures the HTTP admin surface of the cache.
type AdminConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Cache.ApplyDefaults()
	c.Logging.ApplyDefaults()
	if c.Telemetry.Endpoint == "" && c.Telemetry.Enabled {
		c.Telemetry.Endpoint = "localhost:4318"
	}
	if c.Telemetry.Interval == 0 {
		c.Telemetry.Interval = 15 * time.Second
	}
	c.Admin.ApplyDefaults()
}

// ApplyDefaults fills unset admin fields. Port 0 is kept only when the
// surface is disabled.
func (c *AdminConfig) ApplyDefaults() {
	if c.Port == 0 && c.Enabled {
		c.Port = 9090
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15 * time.Second
	}
}

// ApplyDefaults fills unset cache fields.
func (c *CacheConfig) ApplyDefaults() {
	if c.PruneInterval <= 0 {
		c.PruneInterval = DefaultPruneInterval
	}
	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = DefaultSweepBatchSize
	}
}

// Validate checks the validate tags of c and its sections.
func (c *Config) Validate() error {
	return Validate(c)
}
