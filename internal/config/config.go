// Package config defines the agent's typed configuration and loads it from
// the config file and PERCH_-prefixed environment variables via viper.
package config

import "time"

// Stage values recognized in security.stage. Development disables the token
// gate for every path; production enforces it everywhere except "/".
const (
	StageDevelopment = "development"
	StageProduction  = "production"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Security  SecurityConfig  `mapstructure:"security"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Docker    DockerConfig    `mapstructure:"docker"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SecurityConfig contains the admission pipeline configuration.
type SecurityConfig struct {
	// Stage selects development or production semantics for the token gate.
	Stage string `mapstructure:"stage"`

	// SeedPath is the location of the persisted seed file.
	SeedPath string `mapstructure:"seed_path"`

	// MaxVersion is the highest /vN/ API prefix the version guard accepts.
	MaxVersion int `mapstructure:"max_version"`

	// SelfHostDomain is the operator's own console domain added to the CORS
	// allowlist. The sentinel "*" allows every origin.
	SelfHostDomain string `mapstructure:"self_host_domain"`

	// AllowedOrigins lists additional exact or "*.suffix" wildcard domains.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// TrackerLifetime bounds how long an un-escalated warning tracker lives.
	// Clamped to [10m, 30m] at load time.
	TrackerLifetime time.Duration `mapstructure:"tracker_lifetime"`
}

// RuleConfig is one rate-limit rule: at most Limit requests per Period.
type RuleConfig struct {
	Period time.Duration `mapstructure:"period"`
	Limit  int           `mapstructure:"limit"`
}

// RateLimitConfig contains the static rate-limit rule table.
type RateLimitConfig struct {
	// Default applies to any path without a specific rule.
	Default RuleConfig `mapstructure:"default"`

	// Rules is keyed by exact request path.
	Rules map[string]RuleConfig `mapstructure:"rules"`

	// SweepInterval is how often idle client state is evicted.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// IdleEviction is how long a client may be silent before its window
	// is dropped by the sweep.
	IdleEviction time.Duration `mapstructure:"idle_eviction"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level: debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics listener. The metrics listener sits
	// outside the admission pipeline so scrapes are never token-gated.
	Port int `mapstructure:"port"`
}

// MonitorConfig tunes the cached metric collectors.
type MonitorConfig struct {
	// RefreshInterval is how often a live collector samples the host.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// IdleTimeout stops a collector's refresh loop when no API read has
	// happened for this long.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// DockerConfig locates the Docker daemon.
type DockerConfig struct {
	Socket string `mapstructure:"socket"`
}

// IsDevelopment reports whether the agent runs with development-stage
// semantics.
func (s SecurityConfig) IsDevelopment() bool {
	return s.Stage == StageDevelopment
}
