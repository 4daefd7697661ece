// Package config holds the process-wide fwprobe configuration. A Config is
// built once at startup from defaults, an optional YAML file and CLI flags,
// validated, and read-only thereafter.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	apperrors "github.com/fwprobe/fwprobe/internal/errors"
)

// Protocol selection values for ProbingConfig.Protocol.
const (
	ProtoTCP  = "tcp"
	ProtoUDP  = "udp"
	ProtoBoth = "both"
)

// Config represents the complete fwprobe configuration.
type Config struct {
	// Probing configuration
	Probing ProbingConfig `yaml:"probing" json:"probing"`

	// Output configuration
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ProbingConfig holds settings for the probing engine.
type ProbingConfig struct {
	// Number of concurrent probe workers
	Concurrency int `yaml:"concurrency" json:"concurrency" validate:"gt=0"`

	// Hard timeout for a single probe attempt
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`

	// Local source address to bind outgoing probes to (optional)
	BindAddress string `yaml:"bind_address" json:"bind_address" validate:"omitempty,ip"`

	// Protocols to probe: tcp, udp or both
	Protocol string `yaml:"protocol" json:"protocol" validate:"oneof=tcp udp both"`

	// Default port specification used when none is given on the command line
	DefaultPorts string `yaml:"default_ports" json:"default_ports"`

	// Explicit DNS server (host:port) for target resolution; empty uses the
	// system resolver
	DNSServer string `yaml:"dns_server" json:"dns_server"`
}

// OutputConfig holds report serialization settings.
type OutputConfig struct {
	// Report format: csv, json or table
	Format string `yaml:"format" json:"format" validate:"oneof=csv json table"`

	// Destination file path; empty writes to stdout
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Probing: ProbingConfig{
			Concurrency:  200,
			Timeout:      3 * time.Second,
			BindAddress:  "",
			Protocol:     ProtoTCP,
			DefaultPorts: "22,80,443",
			DNSServer:    "",
		},
		Output: OutputConfig{
			Format: "table",
			Path:   "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load loads configuration from a file, starting from defaults. A missing
// file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		return config, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.WrapConfigError(apperrors.CodeConfiguration,
			"failed to read config file", err)
	}

	ext := filepath.Ext(path)
	switch ext {
	case ".yaml", ".yml", ".json":
		// yaml.v3 parses JSON as a YAML subset
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, apperrors.WrapConfigError(apperrors.CodeConfiguration,
				"failed to parse config file", err)
		}
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, apperrors.WrapConfigError(apperrors.CodeConfiguration,
				"failed to parse config (assumed YAML)", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate is shared; struct tags cover ranges and enums.
var validate = validator.New()

// Validate validates the configuration. Violations are configuration-time
// errors and abort the run before any probing starts.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return apperrors.NewConfigFieldError(apperrors.CodeValidation,
				fmt.Sprintf("constraint %q violated", first.Tag()),
				first.Namespace(), first.Value())
		}
		return apperrors.WrapConfigError(apperrors.CodeValidation,
			"configuration validation failed", err)
	}

	// validator's ip tag already covers format; reject unspecified addresses
	// explicitly since binding to them is a no-op that masks operator intent.
	if c.Probing.BindAddress != "" {
		ip := net.ParseIP(c.Probing.BindAddress)
		if ip != nil && ip.IsUnspecified() {
			return apperrors.ErrConfigInvalid("probing.bind_address", c.Probing.BindAddress)
		}
	}

	if c.Probing.DNSServer != "" {
		if _, _, err := net.SplitHostPort(c.Probing.DNSServer); err != nil {
			return apperrors.ErrConfigInvalid("probing.dns_server", c.Probing.DNSServer)
		}
	}

	return nil
}

// Save saves configuration to a file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.WrapConfigError(apperrors.CodeConfiguration,
			"failed to create config directory", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return apperrors.WrapConfigError(apperrors.CodeConfiguration,
			"failed to marshal config", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.WrapConfigError(apperrors.CodeConfiguration,
			"failed to write config file", err)
	}

	return nil
}

// Protocols expands the protocol selection into the ordered list used by the
// work unit generator (TCP before UDP).
func (c *Config) Protocols() []string {
	switch c.Probing.Protocol {
	case ProtoBoth:
		return []string{ProtoTCP, ProtoUDP}
	case ProtoUDP:
		return []string{ProtoUDP}
	default:
		return []string{ProtoTCP}
	}
}
