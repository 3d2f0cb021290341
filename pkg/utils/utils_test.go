package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, ".spotifydl-x.mp3")
	dst := filepath.Join(dir, "out", "Artist - Title.mp3")
	require.NoError(t, os.WriteFile(src, []byte("audio"), 0644))

	require.NoError(t, MoveFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))
	assert.NoFileExists(t, src)
}

func TestMoveFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, MoveFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")))
	assert.Error(t, MoveFile("", "x"))
}

func TestRemoveWithPrefix(t *testing.T) {
	dir := t.TempDir()
	stem := filepath.Join(dir, ".spotifydl-abc")
	for _, name := range []string{".spotifydl-abc.webm", ".spotifydl-abc.mp3.part", ".spotifydl-abd.mp3", "keep.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	require.NoError(t, RemoveWithPrefix(stem))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	assert.ElementsMatch(t, []string{".spotifydl-abd.mp3", "keep.mp3"}, left)
}

func TestReadLinks(t *testing.T) {
	input := `
# favourites
https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC

spotify:track:7GhIk7Il098yCjg4BQjzvb
  https://open.spotify.com/track/3n3Ppam7vgaVa1iaRUc9Lp?si=abc  
`
	links, err := ReadLinks(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
		"spotify:track:7GhIk7Il098yCjg4BQjzvb",
		"https://open.spotify.com/track/3n3Ppam7vgaVa1iaRUc9Lp?si=abc",
	}, links)
}
