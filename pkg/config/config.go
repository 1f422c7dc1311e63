// Package config loads and validates the simpled configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (SIMPLED_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// The configuration is a startup parameter set: it is read once before any
// listener binds and never re-read at runtime.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Names of the hosted protocols, usable as keys under `protocols:`.
const (
	ProtocolEcho    = "echo"
	ProtocolDiscard = "discard"
	ProtocolActive  = "active"
	ProtocolDaytime = "daytime"
	ProtocolQOTD    = "qotd"
	ProtocolMessage = "message"
	ProtocolChargen = "chargen"
	ProtocolTime    = "time"
	ProtocolGopher  = "gopher"
)

// WellKnownPorts maps each protocol to its RFC-assigned port.
var WellKnownPorts = map[string]int{
	ProtocolEcho:    7,
	ProtocolDiscard: 9,
	ProtocolActive:  11,
	ProtocolDaytime: 13,
	ProtocolQOTD:    17,
	ProtocolMessage: 18,
	ProtocolChargen: 19,
	ProtocolTime:    37,
	ProtocolGopher:  70,
}

// ProtocolNames lists the hosted protocols in port order.
var ProtocolNames = []string{
	ProtocolEcho,
	ProtocolDiscard,
	ProtocolActive,
	ProtocolDaytime,
	ProtocolQOTD,
	ProtocolMessage,
	ProtocolChargen,
	ProtocolTime,
	ProtocolGopher,
}

// Config represents the simpled configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// BindAddress is the IP address every listener binds to.
	// Empty binds to all interfaces.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// Hostname is the name written into Gopher menu lines. Required when
	// the gopher protocol is enabled.
	Hostname string `mapstructure:"hostname" yaml:"hostname"`

	// BasePort is added to every well-known port. Useful for running
	// unprivileged (e.g. base_port: 10000 serves echo on 10007).
	// A protocol whose shifted port would exceed 65535 is skipped with an
	// error log rather than aborting the others.
	BasePort int `mapstructure:"base_port" validate:"gte=0,lte=65535" yaml:"base_port"`

	// MaxInputBytes is the per-connection cap on bytes read from a client.
	// A connection exceeding it is reset.
	MaxInputBytes int64 `mapstructure:"max_input_bytes" validate:"gt=0" yaml:"max_input_bytes"`

	// IdleTimeout is the per-connection inactivity limit.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gt=0" yaml:"idle_timeout"`

	// ShutdownTimeout is the grace period for draining live connections
	// after the shutdown signal. Connections still open afterwards are
	// force-closed.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Protocols toggles and overrides individual protocols.
	Protocols map[string]ProtocolConfig `mapstructure:"protocols" yaml:"protocols"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN or ERROR.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is where logs go: stderr, stdout, or a file path.
	Output string `mapstructure:"output" yaml:"output"`
}

// ProtocolConfig holds the per-protocol switches.
type ProtocolConfig struct {
	// Enabled toggles the protocol. All protocols default to enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port overrides the protocol's well-known port. 0 keeps the
	// RFC-assigned port (plus base_port).
	Port int `mapstructure:"port" validate:"gte=0,lte=65535" yaml:"port"`
}

// Enabled reports whether the named protocol is switched on.
func (c *Config) Enabled(name string) bool {
	pc, ok := c.Protocols[name]
	if !ok {
		return true
	}
	return pc.Enabled
}

// Port resolves the effective port for the named protocol: explicit
// override if set, otherwise well-known port shifted by BasePort.
// ok is false when the shifted port does not fit in 16 bits.
func (c *Config) Port(name string) (port int, ok bool) {
	if pc, found := c.Protocols[name]; found && pc.Port != 0 {
		return pc.Port, true
	}

	port = WellKnownPorts[name] + c.BasePort
	if port > 65535 {
		return 0, false
	}
	return port, true
}

// Load reads the configuration from the given file path (or the default
// search locations when empty), applies environment overrides, fills in
// defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)
	setDefaults(v)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for consistency. Beyond the struct
// tags, gopher requires a hostname because the menu format embeds it.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	for name := range cfg.Protocols {
		if _, known := WellKnownPorts[name]; !known {
			return fmt.Errorf("unknown protocol %q in protocols section", name)
		}
	}

	if cfg.Enabled(ProtocolGopher) && cfg.Hostname == "" {
		return fmt.Errorf("the gopher protocol requires the \"hostname\" option; set it or disable gopher")
	}

	return nil
}

// setupViper configures environment variable support and the config file
// search path. Environment variables use the SIMPLED_ prefix:
// SIMPLED_LOGGING_LEVEL=DEBUG, SIMPLED_BASE_PORT=10000.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SIMPLED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the combined decode hook for custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook converts config values to time.Duration, accepting
// human-readable strings like "30s", "5m" as well as raw nanosecond counts.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// DefaultYAML renders the default configuration as YAML, used by
// `simpled init` as a starting point for new deployments.
func DefaultYAML() (string, error) {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("failed to marshal default config: %w", err)
	}
	return string(data), nil
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// getConfigDir returns the configuration directory path, following
// XDG_CONFIG_HOME when set.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "simpled")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "simpled")
}
