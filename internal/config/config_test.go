package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, env map[string]string) *viper.Viper {
	t.Helper()
	for k, val := range env {
		t.Setenv(k, val)
	}
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()
	applyDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := fromViper(newViper(t, nil))
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.False(t, cfg.Numbering.EnforceExpiry)
	assert.Equal(t, "free", cfg.Subscription.DefaultPlan)
	assert.NotEmpty(t, cfg.JWT.Secret, "development gets a placeholder secret")
}

func TestEnvironmentOverrides(t *testing.T) {
	cfg, err := fromViper(newViper(t, map[string]string{
		"FACTURARD_NUMBERING_ENFORCE_EXPIRY": "true",
		"FACTURARD_DATABASE_MAX_CONNS":       "5",
		"FACTURARD_DATABASE_MIN_CONNS":       "1",
		"FACTURARD_WORKER_OUTBOX_INTERVAL":   "500ms",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.Numbering.EnforceExpiry)
	assert.Equal(t, int32(5), cfg.Database.MaxConns)
	assert.Equal(t, 500*time.Millisecond, cfg.Worker.OutboxInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"production without secret", map[string]string{"FACTURARD_ENV": "production"}},
		{"unknown env", map[string]string{"FACTURARD_ENV": "staging"}},
		{"zero pool", map[string]string{"FACTURARD_DATABASE_MAX_CONNS": "0"}},
		{"min above max", map[string]string{"FACTURARD_DATABASE_MAX_CONNS": "2", "FACTURARD_DATABASE_MIN_CONNS": "3"}},
		{"bad log level", map[string]string{"FACTURARD_LOG_LEVEL": "trace"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromViper(newViper(t, tt.env))
			assert.Error(t, err)
		})
	}
}

func TestProductionWithSecret(t *testing.T) {
	cfg, err := fromViper(newViper(t, map[string]string{
		"FACTURARD_ENV":        "production",
		"FACTURARD_JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
}
