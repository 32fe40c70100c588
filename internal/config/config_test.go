package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "[::]:8081", cfg.GRPCAddr)
	assert.Equal(t, "[::]:8080", cfg.HTTPAddr)
	assert.True(t, cfg.EnableGRPC)
	assert.True(t, cfg.EnableHTTP)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 120*time.Second, cfg.SessionExpiry)
	assert.Equal(t, 30*time.Second, cfg.SessionSweepInterval)
	assert.Equal(t, 600*time.Second, cfg.DocumentTTL)
	assert.Equal(t, 300*time.Second, cfg.DocumentSweepInterval)
	assert.Equal(t, "memory", cfg.SnapshotStore)
	assert.Equal(t, "memory", cfg.SessionStore)
}

func TestOverrides(t *testing.T) {
	t.Setenv("GRPC_ADDR", "127.0.0.1:9000")
	t.Setenv("ENABLE_HTTP", "false")
	t.Setenv("SESSION_EXPIRY", "45s")
	t.Setenv("SNAPSHOT_STORE", "postgres")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, "127.0.0.1:9000", cfg.GRPCAddr)
	assert.False(t, cfg.EnableHTTP)
	assert.Equal(t, 45*time.Second, cfg.SessionExpiry)
	assert.Equal(t, "postgres", cfg.SnapshotStore)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestBadValuesFallBack(t *testing.T) {
	t.Setenv("ENABLE_GRPC", "definitely")
	t.Setenv("SESSION_EXPIRY", "not-a-duration")

	cfg := Load()
	assert.True(t, cfg.EnableGRPC)
	assert.Equal(t, 120*time.Second, cfg.SessionExpiry)
}
