package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, []string{"structure", "readability", "completeness", "grammar"}, cfg.Validation.DefaultValidators)
	assert.Equal(t, 3.0, cfg.Validation.ReadabilityThreshold)
	assert.Equal(t, 20, cfg.Remediation.MaxSuggestions)
	assert.True(t, cfg.Remediation.RequireStructuralApproval)
	assert.Equal(t, 10*time.Minute, cfg.Remediation.CleanupInterval)
	assert.Equal(t, 30*time.Minute, cfg.DryRun.CacheDuration)
	assert.Equal(t, 50, cfg.DryRun.MaxCachedSessions)
	assert.Equal(t, SessionStoreMemory, cfg.Sessions.Store)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("DRYRUN_CACHE_DURATION", "5m")
	t.Setenv("DRYRUN_MAX_CACHED_SESSIONS", "3")
	t.Setenv("REMEDIATION_AUTO_APPLICABLE", "FIX_TYPOS, FORMAT_TEXT ,")
	t.Setenv("SESSION_STORE", "REDIS")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.DryRun.CacheDuration)
	assert.Equal(t, 3, cfg.DryRun.MaxCachedSessions)
	assert.Equal(t, []string{"FIX_TYPOS", "FORMAT_TEXT"}, cfg.Remediation.AutoApplicable)
	assert.Equal(t, SessionStoreRedis, cfg.Sessions.Store)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
