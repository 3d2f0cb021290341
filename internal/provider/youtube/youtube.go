// Package youtube finds tracks through yt-dlp's YouTube search.
package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spotifydl/internal/downloader"
	"spotifydl/internal/match"
	"spotifydl/internal/provider"
	"spotifydl/internal/source"
)

// Name identifies the provider in configuration and logs.
const Name = "youtubemusic"

const defaultResults = 5

// Searcher runs a yt-dlp search. *downloader.Downloader implements it.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]downloader.SearchResult, error)
}

// Client implements source.Provider on top of yt-dlp.
type Client struct {
	searcher Searcher
	fetcher  provider.Fetcher
	results  int
}

// New creates a YouTube provider.
func New(searcher Searcher, fetcher provider.Fetcher) *Client {
	return &Client{searcher: searcher, fetcher: fetcher, results: defaultResults}
}

func (c *Client) Name() string { return Name }

// Search queries "<title> <artists> audio". YouTube has no ISRCs, so
// candidates never carry an identifier.
func (c *Client) Search(ctx context.Context, track match.Track) ([]match.Candidate, error) {
	results, err := c.searcher.Search(ctx, Query(track), c.results)
	if err != nil {
		return nil, fmt.Errorf("%w: youtube search: %w", source.ErrNetwork, err)
	}
	return Candidates(results), nil
}

// Candidates converts yt-dlp search results, dropping those without a link.
func Candidates(results []downloader.SearchResult) []match.Candidate {
	candidates := make([]match.Candidate, 0, len(results))
	for _, r := range results {
		link := r.Link()
		if link == "" {
			continue
		}
		candidates = append(candidates, match.Candidate{
			Title:      r.Title,
			ArtistText: r.ArtistText(),
			Duration:   time.Duration(r.Duration * float64(time.Second)),
			Locator:    link,
		})
	}
	return candidates
}

func (c *Client) FetchAndTag(ctx context.Context, candidate match.Candidate, track match.Track, opts source.FetchOptions) (string, error) {
	return c.fetcher.FetchAndTag(ctx, candidate.Locator, track, opts)
}

// Query builds the search string for a track.
func Query(track match.Track) string {
	parts := []string{strings.TrimSpace(track.Title)}
	for _, a := range track.Artists {
		if a = strings.TrimSpace(a); a != "" {
			parts = append(parts, a)
		}
	}
	return strings.Join(append(parts, "audio"), " ")
}
