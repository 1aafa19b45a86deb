package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":9444", cfg.Listen)
	assert.Equal(t, 60*time.Second, cfg.DeadPeerTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 100, cfg.MaxRetries)

	n, err := cfg.ChunkBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(2*1024*1024), n)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sendwire.yaml")
	body := `
listen: ":7000"
chunk_size: 8MiB
dead_peer_timeout: 30s
workers: 2
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, 30*time.Second, cfg.DeadPeerTimeout)
	assert.Equal(t, 2, cfg.Workers)

	// Untouched keys keep their defaults.
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "info", cfg.LogLevel)

	n, err := cfg.ChunkBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(8*1024*1024), n)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestChunkBytes_Invalid(t *testing.T) {
	cfg := Default()
	cfg.ChunkSize = "two megabytes"
	_, err := cfg.ChunkBytes()
	require.Error(t, err)
}
