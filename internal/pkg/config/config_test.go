package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("CRON_SECRET", "cron-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "otel-collector:4318", cfg.OtelEndpoint)
	assert.Equal(t, 10*time.Second, cfg.Push.SendTimeout)
	assert.Equal(t, int32(30), cfg.Repositories.Postgres.MaxConns)
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector.obs.svc:4318")
	t.Setenv("PUSH_SEND_TIMEOUT_SECONDS", "3")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "collector.obs.svc:4318", cfg.OtelEndpoint)
	assert.Equal(t, 3*time.Second, cfg.Push.SendTimeout)
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
