// Package metadata writes catalog metadata into downloaded audio files.
package metadata

import (
	"errors"
	"strings"

	"spotifydl/internal/match"
)

// ErrTagWrite wraps every tagging failure. Callers treat it as a warning:
// the audio file is still usable without tags.
var ErrTagWrite = errors.New("failed to write tags")

// Tags is the metadata embedded into a file.
type Tags struct {
	Title       string
	Artists     []string
	Album       string
	Year        string
	TrackNumber int
	ISRC        string
	Cover       []byte // JPEG, may be empty
	Lyrics      string
}

// FromTrack builds Tags from a catalog track. Cover and lyrics are filled
// in by the caller once fetched.
func FromTrack(t match.Track) Tags {
	return Tags{
		Title:       t.Title,
		Artists:     t.Artists,
		Album:       t.Album,
		Year:        t.ReleaseYear,
		TrackNumber: t.TrackNumber,
		ISRC:        t.ISRC,
	}
}

// Artist returns all artists joined with ", ".
func (t Tags) Artist() string {
	return strings.Join(t.Artists, ", ")
}

var filenameReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	"\"", "_",
	"/", "_",
	"\\", "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// SanitizeFilename replaces characters that are invalid in file names on
// common filesystems with "_".
func SanitizeFilename(name string) string {
	return filenameReplacer.Replace(strings.TrimSpace(name))
}
