// Package match picks the alternate-provider search result that most likely
// corresponds to a catalog track.
package match

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidTrack is returned when a track lacks a title or any artist.
var ErrInvalidTrack = errors.New("track needs a title and at least one artist")

// Track is the catalog description of the recording the user asked for.
type Track struct {
	Title       string
	Artists     []string // catalog order, first is the primary artist
	Album       string
	Duration    time.Duration // always known, may be zero
	ISRC        string
	ReleaseYear string // four digits or empty
	TrackNumber int    // zero when unknown
	CoverArtURL string
	ExternalID  string // catalog id, unique per track
}

// PrimaryArtist returns the first non-empty artist.
func (t Track) PrimaryArtist() string {
	for _, a := range t.Artists {
		if a = strings.TrimSpace(a); a != "" {
			return a
		}
	}
	return ""
}

// JoinedArtists returns all artists separated by ", ".
func (t Track) JoinedArtists() string {
	return strings.Join(t.Artists, ", ")
}

// Validate checks the preconditions for matching.
func (t Track) Validate() error {
	if strings.TrimSpace(t.Title) == "" || t.PrimaryArtist() == "" {
		return ErrInvalidTrack
	}
	return nil
}

// Candidate is one search hit from an alternate provider.
type Candidate struct {
	Title      string
	ArtistText string        // free text, may name several artists
	Duration   time.Duration // zero when unknown
	Identifier string        // ISRC-compatible id, empty when the provider has none
	Locator    string        // opaque, only meaningful to the provider that produced it
}

// Result is an accepted candidate and the score it reached.
type Result struct {
	Candidate Candidate
	Score     int
}
