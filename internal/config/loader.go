package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	trackerLifetimeMin = 10 * time.Minute
	trackerLifetimeMax = 30 * time.Minute
)

// SetDefaults registers the default value for every configuration key.
// Called once from the root command before any config read.
func SetDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 30721)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	viper.SetDefault("security.stage", StageProduction)
	viper.SetDefault("security.seed_path", "/opt/perch/config/passwd")
	viper.SetDefault("security.max_version", 2)
	viper.SetDefault("security.self_host_domain", "*")
	viper.SetDefault("security.allowed_origins", []string{})
	viper.SetDefault("security.tracker_lifetime", "30m")

	viper.SetDefault("ratelimit.default.period", "1s")
	viper.SetDefault("ratelimit.default.limit", 3)
	viper.SetDefault("ratelimit.rules", map[string]interface{}{
		"/": map[string]interface{}{
			"period": "1s",
			"limit":  5,
		},
		"/v1/system/information": map[string]interface{}{
			"period": "3s",
			"limit":  15,
		},
	})
	viper.SetDefault("ratelimit.sweep_interval", "10s")
	viper.SetDefault("ratelimit.idle_eviction", "5m")

	viper.SetDefault("logging.level", "info")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)

	viper.SetDefault("monitor.refresh_interval", "1s")
	viper.SetDefault("monitor.idle_timeout", "60s")

	viper.SetDefault("docker.socket", "/var/run/docker.sock")
}

// Load decodes the merged viper state into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	err := viper.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Security.Stage {
	case StageDevelopment, StageProduction:
	default:
		return fmt.Errorf("config: unknown security.stage %q", c.Security.Stage)
	}

	if c.Security.MaxVersion < 1 {
		return fmt.Errorf("config: security.max_version must be >= 1, got %d", c.Security.MaxVersion)
	}

	if c.Security.TrackerLifetime < trackerLifetimeMin {
		c.Security.TrackerLifetime = trackerLifetimeMin
	}
	if c.Security.TrackerLifetime > trackerLifetimeMax {
		c.Security.TrackerLifetime = trackerLifetimeMax
	}

	if c.RateLimit.Default.Limit < 1 || c.RateLimit.Default.Period <= 0 {
		return fmt.Errorf("config: ratelimit.default must have a positive period and limit")
	}
	for path, rule := range c.RateLimit.Rules {
		if rule.Limit < 1 || rule.Period <= 0 {
			return fmt.Errorf("config: ratelimit rule for %q must have a positive period and limit", path)
		}
	}

	return nil
}
