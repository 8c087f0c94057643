package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/internal/resource"
	"github.com/grovetools/livesync/logging"
	"github.com/grovetools/livesync/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("LIVESYNC_TEST_HOST", "sync.example.test")
	path := writeFile(t, t.TempDir(), "livesync.yml", `
service:
  url: https://${LIVESYNC_TEST_HOST}
  requests_per_second: 5
channel:
  heartbeat_interval: 10s
  reconnect:
    max_attempts: 3
    base_delay: 500ms
    max_delay: 4s
polling:
  resources:
    monitor:
      active: 1s
inspect:
  enabled: true
logging:
  level: debug
  format:
    preset: simple
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, "https://sync.example.test", cfg.Service.URL)
	assert.Equal(t, 1, cfg.Service.Burst, "burst defaults to 1 when a rate is set")
	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval())
	assert.Equal(t, 50, cfg.Polling.EventHistoryLimit)
	assert.True(t, cfg.Inspect.Enabled)

	policy := cfg.ReconnectPolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, policy.BaseDelay)
	assert.Equal(t, 4*time.Second, policy.MaxDelay)

	assert.Equal(t, map[string]resource.Cadence{
		resource.Monitor: {Active: time.Second},
	}, cfg.Cadences())

	var logCfg logging.Config
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "debug", logCfg.Level)
	assert.Equal(t, "simple", logCfg.Format.Preset)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "livesync.toml", `
[service]
origin = "http://localhost:8080"

[channel]
heartbeat_interval = "30s"

[polling.resources.tasks]
hidden = "1m"

[logging]
level = "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Service.Origin)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval())
	assert.Equal(t, time.Minute, cfg.Cadences()[resource.Tasks].Hidden)

	var logCfg logging.Config
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "warn", logCfg.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
		msg     string
	}{
		{
			name:    "bad yaml",
			content: "service: [",
			code:    errors.ErrCodeConfigInvalid,
		},
		{
			name:    "unknown top-level key",
			content: "servce:\n  url: http://x\n",
			code:    errors.ErrCodeConfigValidation,
		},
		{
			name:    "bad duration",
			content: "channel:\n  heartbeat_interval: soon\n",
			code:    errors.ErrCodeConfigInvalid,
		},
		{
			name:    "negative rate",
			content: "service:\n  requests_per_second: -1\n",
			code:    errors.ErrCodeConfigValidation,
		},
		{
			name:    "unsupported scheme",
			content: "service:\n  url: ftp://example.test\n",
			code:    errors.ErrCodeConfigValidation,
			msg:     "service.url",
		},
		{
			name:    "unknown resource",
			content: "polling:\n  resources:\n    orders:\n      active: 1s\n",
			code:    errors.ErrCodeConfigValidation,
			msg:     "orders",
		},
		{
			name:    "inverted delays",
			content: "channel:\n  reconnect:\n    base_delay: 10s\n    max_delay: 1s\n",
			code:    errors.ErrCodeConfigValidation,
		},
		{
			name:    "bad logging level",
			content: "logging:\n  level: chatty\n",
			code:    errors.ErrCodeConfigValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "livesync.yml", tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err), err.Error())
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv(paths.HomeEnv, t.TempDir())

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	_, err := FindConfigFile(nested)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))

	want := writeFile(t, root, ".livesync.yml", "version: '1.0'\n")
	got, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The global file is only a fallback.
	require.NoError(t, os.MkdirAll(paths.ConfigDir(), 0755))
	writeFile(t, paths.ConfigDir(), "livesync.yml", "version: '1.0'\n")
	got, err = FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadFrom_DefaultsWhenAbsent(t *testing.T) {
	t.Setenv(paths.HomeEnv, t.TempDir())

	cfg, path, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, Default(), cfg)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LIVESYNC_SET", "value")
	t.Setenv("LIVESYNC_EMPTY", "")

	assert.Equal(t, "a value b", expandEnvVars("a ${LIVESYNC_SET} b"))
	assert.Equal(t, "fallback", expandEnvVars("${LIVESYNC_EMPTY:-fallback}"))
	assert.Equal(t, "", expandEnvVars("${LIVESYNC_UNSET_VARIABLE}"))
}

func TestUnmarshalExtension_Missing(t *testing.T) {
	cfg := Default()
	target := logging.Config{Level: "info"}
	require.NoError(t, cfg.UnmarshalExtension("logging", &target))
	assert.Equal(t, "info", target.Level)
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "http://json-schema.org/draft-07/schema#", doc["$schema"])

	props, ok := doc["properties"].(map[string]interface{})
	require.True(t, ok)
	for _, key := range []string{"version", "service", "channel", "polling", "inspect", "logging"} {
		assert.Contains(t, props, key)
	}
	assert.NotContains(t, props, "Extensions")
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))

	assert.Error(t, d.UnmarshalText([]byte("ninety")))
}

func TestAPIBaseURL(t *testing.T) {
	tests := []struct {
		service ServiceConfig
		want    string
	}{
		{ServiceConfig{URL: "https://monitor.example.test/"}, "https://monitor.example.test"},
		{ServiceConfig{URL: "wss://monitor.example.test/ws"}, "https://monitor.example.test"},
		{ServiceConfig{URL: "ws://localhost:8080"}, "http://localhost:8080"},
		{ServiceConfig{Origin: "http://localhost:3000"}, "http://localhost:3000"},
		{ServiceConfig{}, ""},
	}
	for _, tt := range tests {
		cfg := &Config{Service: tt.service}
		assert.Equal(t, tt.want, cfg.APIBaseURL())
	}
}
