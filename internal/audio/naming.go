package audio

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"spotifydl/internal/match"
	"spotifydl/internal/metadata"
)

const tempPrefix = ".spotifydl-"

// TempStem returns the extension-less temporary path for a track's
// download. It depends only on the track identity, so concurrent
// downloads of different tracks never share files. The hash keeps
// catalog ids that differ only by case apart after slugging.
func TempStem(outputDir string, track match.Track) string {
	key := track.ExternalID
	if key == "" {
		key = track.PrimaryArtist() + " " + track.Title
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return filepath.Join(outputDir, fmt.Sprintf("%s%s-%08x", tempPrefix, slug.Make(key), h.Sum32()))
}

// FinalPath returns "<outputDir>/<Primary Artist> - <Title><ext>" with
// unsafe characters replaced.
func FinalPath(outputDir string, track match.Track, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := metadata.SanitizeFilename(track.PrimaryArtist() + " - " + track.Title)
	return filepath.Join(outputDir, name+ext)
}
