package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: "127.0.0.1"
  port: 9090
storage:
  db_path: "/tmp/voxd-db"
security:
  signing_keys: ["k1", "k2"]
relay:
  api_key: "abc"
  include_history: true
  stream:
    chunk_chars: 5
    interval_ms: 10
speech:
  enabled: true
  language: "en"
logging:
  level: "debug"
  format: "json"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "/tmp/voxd-db", cfg.Storage.DBPath)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Security.SigningKeys)
	assert.True(t, cfg.Relay.IncludeHistory)
	assert.Equal(t, 5, cfg.Relay.Stream.ChunkChars)
	assert.True(t, cfg.Speech.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestAddrDefaults(t *testing.T) {
	var cfg Config
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VOXD_ADDR", "127.0.0.1:7070")
	t.Setenv("VOXD_RELAY_API_KEY", "env-key")
	t.Setenv("VOXD_SIGNING_KEYS", "a, b ,c")

	var cfg Config
	assert.True(t, LoadEnvOverrides(&cfg))
	assert.Equal(t, "127.0.0.1:7070", cfg.Addr())
	assert.Equal(t, "env-key", cfg.Relay.APIKey)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Security.SigningKeys)
}

func TestEnvOverridesNoneSet(t *testing.T) {
	for _, k := range []string{"VOXD_ADDR", "VOXD_DB_PATH", "VOXD_RELAY_API_KEY", "VOXD_RELAY_ENDPOINT", "VOXD_SIGNING_KEYS", "VOXD_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	var cfg Config
	assert.False(t, LoadEnvOverrides(&cfg))
}

func TestSplitHostPort(t *testing.T) {
	host, port, ok := SplitHostPort(":8080")
	require.True(t, ok)
	assert.Equal(t, "", host)
	assert.Equal(t, 8080, port)

	host, port, ok = SplitHostPort("10.0.0.1:9999")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", host)
	assert.Equal(t, 9999, port)

	_, _, ok = SplitHostPort("no-port")
	assert.False(t, ok)
}

func TestSigningKeyRuntime(t *testing.T) {
	SetRuntime(&RuntimeConfig{SigningKeys: map[string]struct{}{"s": {}}})
	t.Cleanup(func() { SetRuntime(&RuntimeConfig{}) })

	keys := GetSigningKeys()
	assert.Contains(t, keys, "s")

	// the returned map is a copy
	delete(keys, "s")
	assert.Contains(t, GetSigningKeys(), "s")
}
