package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for the simpled configuration.
const (
	DefaultLogLevel        = "INFO"
	DefaultLogFormat       = "text"
	DefaultLogOutput       = "stderr"
	DefaultMaxInputBytes   = 64 * 1024
	DefaultIdleTimeout     = 5 * time.Minute
	DefaultShutdownTimeout = 30 * time.Second
)

// Default returns a fully-populated configuration with every protocol
// enabled on its well-known port.
func Default() *Config {
	protocols := make(map[string]ProtocolConfig, len(ProtocolNames))
	for _, name := range ProtocolNames {
		protocols[name] = ProtocolConfig{Enabled: true}
	}

	return &Config{
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Output: DefaultLogOutput,
		},
		Hostname:        "localhost",
		MaxInputBytes:   DefaultMaxInputBytes,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		Protocols:       protocols,
	}
}

// setDefaults registers the default values with viper so that environment
// overrides resolve and unset keys fall back correctly.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
	v.SetDefault("logging.output", DefaultLogOutput)
	v.SetDefault("bind_address", "")
	v.SetDefault("hostname", "localhost")
	v.SetDefault("base_port", 0)
	v.SetDefault("max_input_bytes", DefaultMaxInputBytes)
	v.SetDefault("idle_timeout", DefaultIdleTimeout)
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)

	for _, name := range ProtocolNames {
		v.SetDefault("protocols."+name+".enabled", true)
		v.SetDefault("protocols."+name+".port", 0)
	}
}

// ApplyDefaults fills in zero values on a decoded configuration. A partial
// config file (or a hand-built Config in tests) ends up with the same
// defaults as Default().
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = DefaultLogOutput
	}
	if cfg.MaxInputBytes == 0 {
		cfg.MaxInputBytes = DefaultMaxInputBytes
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Protocols == nil {
		cfg.Protocols = Default().Protocols
	}
}
