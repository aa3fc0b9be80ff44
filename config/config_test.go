package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goya.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := write(t, `
dictionary:
  dir: /var/lib/goya
  source: artifacts
  compress: true
features:
  sqlite: /var/lib/goya/features.db
workers:
  count: 8
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/goya", cfg.Dictionary.Dir)
	assert.Equal(t, SourceArtifacts, cfg.Dictionary.Source)
	assert.True(t, cfg.Dictionary.Compress)
	assert.Equal(t, "/var/lib/goya/features.db", cfg.Features.SQLite)
	assert.Equal(t, 8, cfg.Workers.Count)
	// untouched sections keep their defaults
	assert.Equal(t, 100, cfg.Workers.Queue)
	assert.Equal(t, 1024, cfg.Cache.Size)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GOYA_DICT_DIR", "/tmp/dict")
	t.Setenv("GOYA_LOG_LEVEL", "error")
	t.Setenv("GOYA_WORKERS", "2")
	cfg, err := Load(write(t, "dictionary:\n  source: uni\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/dict", cfg.Dictionary.Dir)
	assert.Equal(t, SourceArtifacts, cfg.Dictionary.Source)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Workers.Count)

	t.Setenv("GOYA_SOURCE", "uni")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, SourceUNI, cfg.Dictionary.Source)

	t.Setenv("GOYA_WORKERS", "many")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Dictionary.Source = "jumandic"
	cfg.Workers.Count = 0
	cfg.Cache.Size = -1
	cfg.Log.Format = "xml"
	cfg.Features = FeaturesConfig{Path: "a", SQLite: "b"}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"jumandic", "workers.count", "cache.size", "log.format", "exclusive"} {
		assert.Contains(t, err.Error(), want)
	}

	cfg = Defaults()
	cfg.Dictionary = DictionaryConfig{Source: SourceArtifacts}
	assert.ErrorContains(t, cfg.Validate(), "dictionary.dir")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = Load(write(t, "workers: [1, 2"))
	assert.Error(t, err)
	_, err = Load(write(t, "workers:\n  count: 0\n"))
	assert.Error(t, err)
}
