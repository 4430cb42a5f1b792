package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 256, cfg.SessionMaxEvents)
	assert.InDelta(t, 0.25, cfg.BlockedThreshold, 1e-9)
	assert.False(t, cfg.BrowserFallback)
	assert.Empty(t, cfg.Proxies())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "SERVER_PORT=9090\nBROWSER_FALLBACK=true\nPROXY_URLS=http://p1:8080, http://p2:8080,\nREVIEW_THRESHOLD=0.7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("FETCH_TIMEOUT_SECONDS", "12")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.ServerPort, "environment overrides the file")
	assert.True(t, cfg.BrowserFallback)
	assert.Equal(t, 12*time.Second, cfg.FetchTimeout())
	assert.Equal(t, []string{"http://p1:8080", "http://p2:8080"}, cfg.Proxies())
	assert.InDelta(t, 0.7, cfg.ReviewThreshold, 1e-9)
}
