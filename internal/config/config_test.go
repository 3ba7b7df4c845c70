package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg := LoadFile("")

	assert.Equal(t, defaultLookupURL, cfg.Upstream.LookupURL)
	assert.Equal(t, defaultCommentURL, cfg.Upstream.CommentURL)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileMergesYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte(`
upstream:
  lookupUrl: http://lookup.local/pagelist
  timeout: 2s
server:
  addr: ":8080"
logging:
  level: debug
  format: json
`)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	t.Setenv(commentURLEnv, "http://comments.local/list.so")
	t.Setenv(addrEnv, ":9090")

	cfg := LoadFile(path)

	assert.Equal(t, "http://lookup.local/pagelist", cfg.Upstream.LookupURL)
	assert.Equal(t, "http://comments.local/list.so", cfg.Upstream.CommentURL)
	assert.Equal(t, 2*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, defaultUserAgent, cfg.Upstream.UserAgent)
}

func TestLoadFileInvalidTimeoutKeepsPrevious(t *testing.T) {
	t.Setenv(timeoutEnv, "soon")

	cfg := LoadFile("")

	assert.Equal(t, defaultTimeout, cfg.Upstream.Timeout)
}

func TestLoadFileMissingFileFallsBack(t *testing.T) {
	cfg := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Equal(t, defaultLookupURL, cfg.Upstream.LookupURL)
}
