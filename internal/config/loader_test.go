package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30721, cfg.Server.Port)
	assert.Equal(t, StageProduction, cfg.Security.Stage)
	assert.Equal(t, 2, cfg.Security.MaxVersion)
	assert.Equal(t, "*", cfg.Security.SelfHostDomain)
	assert.Equal(t, 30*time.Minute, cfg.Security.TrackerLifetime)

	assert.Equal(t, 3, cfg.RateLimit.Default.Limit)
	assert.Equal(t, time.Second, cfg.RateLimit.Default.Period)
	require.Contains(t, cfg.RateLimit.Rules, "/v1/system/information")
	assert.Equal(t, 15, cfg.RateLimit.Rules["/v1/system/information"].Limit)
	assert.Equal(t, 3*time.Second, cfg.RateLimit.Rules["/v1/system/information"].Period)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.IdleEviction)
}

func TestLoadRejectsUnknownStage(t *testing.T) {
	resetViper(t)
	viper.Set("security.stage", "staging")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security.stage")
}

func TestLoadClampsTrackerLifetime(t *testing.T) {
	resetViper(t)

	viper.Set("security.tracker_lifetime", "1m")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Security.TrackerLifetime)

	viper.Set("security.tracker_lifetime", "4h")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Security.TrackerLifetime)
}

func TestLoadRejectsBadRule(t *testing.T) {
	resetViper(t)
	viper.Set("ratelimit.rules", map[string]interface{}{
		"/v1/monitor/cpu": map[string]interface{}{"period": "0s", "limit": 10},
	})

	_, err := Load()
	require.Error(t, err)
}

func TestIsDevelopment(t *testing.T) {
	assert.True(t, SecurityConfig{Stage: StageDevelopment}.IsDevelopment())
	assert.False(t, SecurityConfig{Stage: StageProduction}.IsDevelopment())
}
