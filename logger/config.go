package logger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Encodings accepted in Config.Format.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatPretty  = "pretty"
)

// Destinations accepted in Config.Output.
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
)

// Config controls how log lines are filtered and written. The validate tags
// are checked by config.Validate as part of the service config.
type Config struct {
	Level   string `yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format  string `yaml:"format" mapstructure:"format" validate:"oneof=json console pretty"`
	Output  string `yaml:"output" mapstructure:"output" validate:"omitempty,oneof=stdout stderr"`
	NoColor bool   `yaml:"no_color" mapstructure:"no_color"`
	// OmitTimestamp drops the time field for sinks that stamp lines themselves.
	OmitTimestamp bool `yaml:"omit_timestamp" mapstructure:"omit_timestamp"`
	Caller        bool `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults fills empty fields with info-level console output to stdout.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = zerolog.InfoLevel.String()
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = OutputStdout
	}
}

// Validate rejects levels zerolog cannot parse and unknown encodings or
// destinations. An empty output means stdout.
func (c *Config) Validate() error {
	if c.Level == "" {
		return fmt.Errorf("logging.level is empty")
	}
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch strings.ToLower(c.Format) {
	case FormatJSON, FormatConsole, FormatPretty:
	default:
		return fmt.Errorf("logging.format %q is not one of %s, %s, %s", c.Format, FormatJSON, FormatConsole, FormatPretty)
	}
	switch strings.ToLower(c.Output) {
	case "", OutputStdout, OutputStderr:
	default:
		return fmt.Errorf("logging.output %q is not %s or %s", c.Output, OutputStdout, OutputStderr)
	}
	return nil
}
