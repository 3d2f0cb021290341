package spotify

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidLink is returned for input that does not name a single track.
var ErrInvalidLink = errors.New("not a Spotify track link")

var (
	trackPathRe = regexp.MustCompile(`(?:^|/)track/([A-Za-z0-9]+)`)
	trackURIRe  = regexp.MustCompile(`^spotify:track:([A-Za-z0-9]+)$`)
)

// ParseTrackLink extracts the track id from an open.spotify.com link or a
// "spotify:track:<id>" URI.
func ParseTrackLink(link string) (string, error) {
	link = strings.TrimSpace(link)
	if m := trackURIRe.FindStringSubmatch(link); m != nil {
		return m[1], nil
	}
	if m := trackPathRe.FindStringSubmatch(link); m != nil {
		return m[1], nil
	}
	return "", ErrInvalidLink
}
