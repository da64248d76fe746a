package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_UsesSpecDefaults(t *testing.T) {
	cfg := Default()
	require.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
	require.Equal(t, DefaultCompressionLevel, cfg.CompressionLevel)
	require.Equal(t, "snapstore-user", cfg.Author)
	require.ElementsMatch(t, DefaultIgnorePatterns, cfg.IgnorePatterns)
}

func TestLoad_NoFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
}

func TestLoad_ExplicitFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_file_size: 1024\nauthor: ci-bot\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(1024), cfg.MaxFileSize)
	require.Equal(t, "ci-bot", cfg.Author)
}
