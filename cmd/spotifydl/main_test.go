package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotifydl/internal/config"
)

func TestInitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotifydl.yaml")

	require.NoError(t, initConfigFile(path, false))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, os.WriteFile(path, []byte("format: flac\n"), 0600))
	require.NoError(t, initConfigFile(path, false))
	data, _ := os.ReadFile(path)
	assert.Equal(t, "format: flac\n", string(data), "existing file kept without --force")

	require.NoError(t, initConfigFile(path, true))
	cfg, err := config.Load(config.LoadOptions{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "mp3", cfg.Format)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spotifydl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: flac\nsource: deezer\nparallel_jobs: 2\n"), 0600))

	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--config", path, "-s", "soundcloud", "-j", "6", "-u", "spotify:track:x"}))

	cfg, err := loadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, "flac", cfg.Format)
	assert.Equal(t, "soundcloud", cfg.Source)
	assert.Equal(t, 6, cfg.ParallelJobs)
	assert.Equal(t, "spotify:track:x", link)
}

func TestRootRequiresLink(t *testing.T) {
	link = ""
	root := newRootCmd()
	root.SetArgs([]string{})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "track link is required")
}
