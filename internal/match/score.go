package match

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Scoring weights. An identifier match alone reaches AcceptScore; no single
// heuristic signal does.
const (
	TitleWeight      = 3
	ArtistWeight     = 2
	DurationWeight   = 2
	IdentifierWeight = 5

	// AcceptScore is the lowest score SelectBest accepts.
	AcceptScore = 5

	// DurationTolerance is the exclusive bound on the duration difference.
	DurationTolerance = 30 * time.Second
)

// Score rates how likely candidate is the same recording as track.
// Missing optional candidate fields contribute nothing. The title check is one-way:
// the track title must appear inside the candidate title.
func Score(track Track, candidate Candidate) int {
	score := 0

	if title := fold(track.Title); title != "" && strings.Contains(fold(candidate.Title), title) {
		score += TitleWeight
	}

	if artistMatches(track.Artists, candidate.ArtistText) {
		score += ArtistWeight
	}

	// Track duration is always known; zero is a real length.
	if candidate.Duration > 0 {
		diff := candidate.Duration - track.Duration
		if diff < 0 {
			diff = -diff
		}
		if diff < DurationTolerance {
			score += DurationWeight
		}
	}

	if track.ISRC != "" && candidate.Identifier != "" && track.ISRC == candidate.Identifier {
		score += IdentifierWeight
	}

	return score
}

func artistMatches(artists []string, text string) bool {
	haystack := fold(text)
	if haystack == "" {
		return false
	}
	for _, a := range artists {
		if a = fold(a); a != "" && strings.Contains(haystack, a) {
			return true
		}
	}
	return false
}

// fold puts s in canonical composed form and lower-cases it so that
// visually identical strings compare equal.
func fold(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
