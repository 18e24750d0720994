package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 30, cfg.History.Limit)
	assert.Equal(t, "ollama", cfg.Model.Provider)
	assert.Equal(t, "llama3.1", cfg.Model.ID)
	assert.Equal(t, "http://localhost:11434", cfg.Model.Endpoint)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	// Should return defaults
	assert.Equal(t, "ollama", cfg.Model.Provider)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
socket: /tmp/custom.sock
database: /tmp/custom.db
prompt: You are a terse assistant.
history:
  limit: 10
model:
  id: qwen2.5
  endpoint: http://theseus.home.arpa:11434
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.sock", cfg.Socket)
	assert.Equal(t, "/tmp/custom.db", cfg.Database)
	assert.Equal(t, "You are a terse assistant.", cfg.Prompt)
	assert.Equal(t, 10, cfg.History.Limit)
	assert.Equal(t, "qwen2.5", cfg.Model.ID)
	assert.Equal(t, "http://theseus.home.arpa:11434", cfg.Model.Endpoint)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset fields fall back to defaults
	assert.Equal(t, "ollama", cfg.Model.Provider)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{invalid yaml"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EZRA_MODEL", "mistral")
	t.Setenv("EZRA_HISTORY_LIMIT", "5")
	t.Setenv("EZRA_LOG_LEVEL", "TRACE")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "mistral", cfg.Model.ID)
	assert.Equal(t, 5, cfg.History.Limit)
	assert.Equal(t, "trace", cfg.Logging.Level)
}

func TestValidateValid(t *testing.T) {
	cfg := Defaults()
	issues := Validate(&cfg)
	assert.Empty(t, issues)
}

func TestValidateInvalidProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Model.Provider = "carrier-pigeon"
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "model.provider", issues[0].Path)
}

func TestValidateNegativeLimit(t *testing.T) {
	cfg := Defaults()
	cfg.History.Limit = -1
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "history.limit", issues[0].Path)
}

func TestValidateInvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "verbose"
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "logging.level", issues[0].Path)
}

func TestParseConfigPath(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"model.id", []string{"model", "id"}, false},
		{"history.limit", []string{"history", "limit"}, false},
		{"", nil, true},
		{"a..b", nil, true},
		{"__proto__.x", nil, true},
		{"x.constructor", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGetSetValueAtPath(t *testing.T) {
	root := map[string]any{
		"model": map[string]any{
			"id": "llama3.1",
		},
	}

	// Get existing
	val, ok := GetValueAtPath(root, []string{"model", "id"})
	assert.True(t, ok)
	assert.Equal(t, "llama3.1", val)

	// Get missing
	_, ok = GetValueAtPath(root, []string{"model", "missing"})
	assert.False(t, ok)

	// Set existing
	SetValueAtPath(root, []string{"model", "id"}, "mistral")
	val, ok = GetValueAtPath(root, []string{"model", "id"})
	assert.True(t, ok)
	assert.Equal(t, "mistral", val)

	// Set new nested
	SetValueAtPath(root, []string{"history", "limit"}, 10)
	val, ok = GetValueAtPath(root, []string{"history", "limit"})
	assert.True(t, ok)
	assert.Equal(t, 10, val)
}

func TestUnsetValueAtPath(t *testing.T) {
	root := map[string]any{
		"model": map[string]any{
			"id":       "llama3.1",
			"endpoint": "http://localhost:11434",
		},
	}

	ok := UnsetValueAtPath(root, []string{"model", "id"})
	assert.True(t, ok)

	_, exists := GetValueAtPath(root, []string{"model", "id"})
	assert.False(t, exists)

	// Endpoint should still be there
	val, exists := GetValueAtPath(root, []string{"model", "endpoint"})
	assert.True(t, exists)
	assert.Equal(t, "http://localhost:11434", val)

	// Unset missing key
	ok = UnsetValueAtPath(root, []string{"model", "nonexistent"})
	assert.False(t, ok)
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	raw := map[string]any{
		"model": map[string]any{
			"id": "mistral",
		},
	}

	require.NoError(t, SaveRaw(path, raw))

	loaded, err := LoadRaw(path)
	require.NoError(t, err)

	val, ok := GetValueAtPath(loaded, []string{"model", "id"})
	assert.True(t, ok)
	assert.Equal(t, "mistral", val)
}

func TestResolvePaths(t *testing.T) {
	t.Setenv("EZRA_HOME", t.TempDir())
	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.NotEmpty(t, paths.Base)
	assert.Contains(t, paths.Config, "config.yaml")
	assert.Contains(t, paths.Socket, "ezra.sock")
	assert.Contains(t, paths.Database, "ezra.db")
}

func TestResolvePathsCustomHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("EZRA_HOME", tmp)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, tmp, paths.Base)
	assert.Equal(t, filepath.Join(tmp, "config.yaml"), paths.Config)
}

func TestEnsureDirs(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("EZRA_HOME", tmp)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirs())

	// Verify dirs exist
	for _, d := range []string{paths.Base, paths.Data, paths.Logs} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
