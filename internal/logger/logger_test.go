package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogReceivesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotifydl.log")

	log := New(false)
	require.NoError(t, log.SetFileLog(path))

	log.Debug("resolving %s", "track-42")
	log.Info("done")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "resolving track-42")
	assert.Contains(t, string(data), "done")
}

func TestSetFileLogBadPath(t *testing.T) {
	log := New(false)
	assert.Error(t, log.SetFileLog(filepath.Join(t.TempDir(), "missing", "x.log")))
}

func TestNopLogger(t *testing.T) {
	log := NewNop()
	log.Info("ignored %d", 1)
	log.Error("ignored")
	assert.NoError(t, log.Close())
}
