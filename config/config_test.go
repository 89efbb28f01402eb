package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "file:telemetry.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10.0, cfg.Server.RateLimitPerSec)
	assert.Equal(t, 5, cfg.Server.RateLimitBurst)
	assert.Equal(t, 30*time.Second, cfg.Server.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.Ingest.ConnectTimeout)
	assert.False(t, cfg.Ingest.AutoProvision)
	assert.Equal(t, 0, cfg.Ingest.SubscribeQOS)
	assert.Equal(t, "telemetry", cfg.History.Database)
	assert.Equal(t, "reading_history", cfg.History.Collection)
	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  rate_limit_per_sec: 50
  cache_ttl_seconds: 5
database:
  dsn: "host=localhost user=telemetry dbname=telemetry"
ingest:
  auto_provision: true
  connect_timeout_seconds: 3
  subscribe_qos: 1
history:
  enabled: true
  mongo_uri: "mongodb://localhost:27017"
push:
  vapid_public_key: "pub"
  vapid_private_key: "priv"
  subject: "mailto:ops@example.com"
worker_pool:
  size: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.CacheTTL)
	assert.True(t, cfg.Ingest.AutoProvision)
	assert.Equal(t, 3*time.Second, cfg.Ingest.ConnectTimeout)
	assert.Equal(t, 1, cfg.Ingest.SubscribeQOS)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "pub", cfg.Push.PublicKey)
	assert.Equal(t, 4, cfg.WorkerPool.Size)
}

func TestLoadInvalidQOSFallsBack(t *testing.T) {
	path := writeConfig(t, `
ingest:
  subscribe_qos: 7
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Ingest.SubscribeQOS)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
