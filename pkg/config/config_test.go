package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.0, cfg.Session.DefaultThreshold)
	assert.Equal(t, 2, cfg.Session.UndoCapacity)
	assert.Equal(t, 1360, cfg.Session.ScreenWidth)
	assert.Equal(t, 768, cfg.Session.ScreenHeight)
	assert.Equal(t, 30, cfg.Clustering.ResamplePoints)
	assert.False(t, cfg.Clustering.FlipInvariant)
	assert.Equal(t, ".tck", cfg.Output.Extension)
	assert.Empty(t, cfg.Output.Prefix)
	assert.Empty(t, cfg.Output.JournalPath)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesSubset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
session:
  defaultThreshold: 12.5
  undoCapacity: 5
clustering:
  flipInvariant: true
output:
  prefix: sub01
  journalPath: runs/journal.db
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 12.5, cfg.Session.DefaultThreshold)
	assert.Equal(t, 5, cfg.Session.UndoCapacity)
	assert.True(t, cfg.Clustering.FlipInvariant)
	assert.Equal(t, "sub01", cfg.Output.Prefix)
	assert.Equal(t, "runs/journal.db", cfg.Output.JournalPath)

	// Everything the file is silent on keeps its default.
	assert.Equal(t, 1360, cfg.Session.ScreenWidth)
	assert.Equal(t, 30, cfg.Clustering.ResamplePoints)
	assert.Equal(t, ".tck", cfg.Output.Extension)
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session: [not a map"), 0o644))

	_, err := LoadConfig(path)
	require.ErrorContains(t, err, "parsing config file")
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Session.DefaultThreshold = 8
	cfg.Output.Prefix = "curated"
	cfg.Anatomy.Path = "t1.nii.gz"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
}
