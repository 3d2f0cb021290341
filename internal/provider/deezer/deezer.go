// Package deezer finds tracks on Deezer, whose catalog exposes ISRCs.
//
// Deezer only serves 30 second previews, so a confirmed Deezer match is
// downloaded from the YouTube upload of the same recording.
package deezer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"spotifydl/internal/match"
	"spotifydl/internal/provider"
	"spotifydl/internal/provider/youtube"
	"spotifydl/internal/source"
)

// Name identifies the provider in configuration and logs.
const Name = "deezer"

// errDataNotFound is the Deezer error code for an unknown resource.
const errDataNotFound = 800

const streamResults = 5

// Client is a Deezer API client that implements source.Provider.
type Client struct {
	httpClient *http.Client
	apiURL     string
	limiter    *rate.Limiter
	streams    youtube.Searcher
	fetcher    provider.Fetcher
}

// New creates a new Deezer client. streams finds the full-length upload
// of a matched track.
func New(streams youtube.Searcher, fetcher provider.Fetcher) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     "https://api.deezer.com",
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		streams:    streams,
		fetcher:    fetcher,
	}
}

func (c *Client) Name() string { return Name }

// Search looks the track up by ISRC first, then by title and artist. The
// combined results are deduplicated by Deezer id, ISRC hits first.
func (c *Client) Search(ctx context.Context, track match.Track) ([]match.Candidate, error) {
	var items []trackItem

	if track.ISRC != "" {
		item, found, err := c.byISRC(ctx, track.ISRC)
		if err != nil {
			return nil, err
		}
		if found {
			items = append(items, item)
		}
	}

	q := buildQuery(track)
	if q != "" {
		found, err := c.search(ctx, q)
		if err != nil {
			return nil, err
		}
		items = append(items, found...)
	}

	return toCandidates(items), nil
}

// FetchAndTag looks up the matched recording on YouTube, using Deezer's
// title, artists and duration, and downloads the best upload with the
// shared fetcher.
func (c *Client) FetchAndTag(ctx context.Context, candidate match.Candidate, track match.Track, opts source.FetchOptions) (string, error) {
	locator, err := c.streamLocator(ctx, candidate)
	if err != nil {
		return "", err
	}
	return c.fetcher.FetchAndTag(ctx, locator, track, opts)
}

func (c *Client) streamLocator(ctx context.Context, candidate match.Candidate) (string, error) {
	if c.streams == nil {
		return "", fmt.Errorf("%w: deezer has no stream source configured", source.ErrProviderUnavailable)
	}

	want := match.Track{
		Title:    candidate.Title,
		Artists:  strings.Split(candidate.ArtistText, ", "),
		Duration: candidate.Duration,
	}
	results, err := c.streams.Search(ctx, youtube.Query(want), streamResults)
	if err != nil {
		return "", fmt.Errorf("%w: deezer stream lookup: %w", source.ErrNetwork, err)
	}

	best, ok := match.SelectBest(want, youtube.Candidates(results))
	if !ok {
		return "", fmt.Errorf("%w: no full-length upload found for deezer track %q", source.ErrDownload, candidate.Title)
	}
	return best.Candidate.Locator, nil
}

func (c *Client) byISRC(ctx context.Context, isrc string) (trackItem, bool, error) {
	var item struct {
		trackItem
		Error *apiError `json:"error,omitempty"`
	}
	if err := c.get(ctx, "/track/isrc:"+url.PathEscape(isrc), nil, &item); err != nil {
		return trackItem{}, false, err
	}
	if item.Error != nil {
		if item.Error.Code == errDataNotFound {
			return trackItem{}, false, nil
		}
		return trackItem{}, false, item.Error.asError()
	}
	return item.trackItem, item.ID != 0, nil
}

func (c *Client) search(ctx context.Context, q string) ([]trackItem, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("limit", "10")

	var searchResp searchResponse
	if err := c.get(ctx, "/search", params, &searchResp); err != nil {
		return nil, err
	}
	if searchResp.Error != nil {
		return nil, searchResp.Error.asError()
	}
	return searchResp.Data, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.apiURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create deezer request: %w", err)
	}
	req.Header.Set("User-Agent", provider.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: deezer request failed: %w", source.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: deezer returned %d: %s", source.ErrProviderUnavailable, resp.StatusCode, body)
	}

	if err := jsoniter.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode deezer response: %w", err)
	}
	return nil
}

func buildQuery(track match.Track) string {
	escape := func(s string) string {
		return strings.ReplaceAll(s, "\"", "")
	}
	var parts []string
	if track.Title != "" {
		parts = append(parts, "track:\""+escape(track.Title)+"\"")
	}
	if a := track.PrimaryArtist(); a != "" {
		parts = append(parts, "artist:\""+escape(a)+"\"")
	}
	return strings.Join(parts, " ")
}

func toCandidates(items []trackItem) []match.Candidate {
	seen := make(map[int64]bool)
	candidates := []match.Candidate{}
	for _, item := range items {
		if item.ID == 0 || seen[item.ID] {
			continue
		}
		seen[item.ID] = true

		artists := []string{item.Artist.Name}
		for _, c := range item.Contributors {
			if c.Name != "" && c.Name != item.Artist.Name {
				artists = append(artists, c.Name)
			}
		}

		link := item.Link
		if link == "" {
			link = "https://www.deezer.com/track/" + strconv.FormatInt(item.ID, 10)
		}

		candidates = append(candidates, match.Candidate{
			Title:      item.Title,
			ArtistText: strings.Join(artists, ", "),
			Duration:   time.Duration(item.Duration) * time.Second,
			Identifier: item.ISRC,
			Locator:    link,
		})
	}
	return candidates
}

// Deezer API response types

type searchResponse struct {
	Data  []trackItem `json:"data"`
	Error *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *apiError) asError() error {
	return fmt.Errorf("%w: deezer API error %d: %s", source.ErrProviderUnavailable, e.Code, e.Message)
}

type trackItem struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	ISRC         string   `json:"isrc"`
	Link         string   `json:"link"`
	Duration     int      `json:"duration"`
	Artist       artist   `json:"artist"`
	Contributors []artist `json:"contributors"`
}

type artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
