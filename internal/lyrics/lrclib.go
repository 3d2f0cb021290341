// Package lyrics looks up song lyrics on LRCLib.
package lyrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"spotifydl/internal/match"
)

const userAgent = "spotifydl/1.0 (+https://lrclib.net)"

type Result struct {
	Synced string // LRC format with timestamps, empty if unavailable
	Plain  string // plain text lyrics, empty if unavailable
}

// Text returns the plain lyrics, or the synced ones when no plain text exists.
func (r Result) Text() string {
	if r.Plain != "" {
		return r.Plain
	}
	return r.Synced
}

type Client struct {
	httpClient *http.Client
	apiURL     string
	retryDelay time.Duration
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     "https://lrclib.net/api/get",
		retryDelay: 2 * time.Second,
	}
}

// ForTrack returns the lyrics text for a catalog track, or "" when LRCLib
// has none.
func (c *Client) ForTrack(ctx context.Context, track match.Track) (string, error) {
	res, err := c.Fetch(ctx, track.PrimaryArtist(), track.Title, track.Album, track.Duration)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

// Fetch retrieves lyrics for the given track from LRCLib.
// Returns empty Result (no error) when lyrics are not found.
// Retries once on transient network errors.
func (c *Client) Fetch(ctx context.Context, artist, title, album string, duration time.Duration) (Result, error) {
	result, err := c.doFetch(ctx, artist, title, album, duration)
	if err == nil {
		return result, nil
	}

	// API errors would fail identically on retry.
	if !isTransient(err) {
		return Result{}, err
	}

	select {
	case <-ctx.Done():
		return Result{}, err
	case <-time.After(c.retryDelay):
	}
	return c.doFetch(ctx, artist, title, album, duration)
}

func isTransient(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (c *Client) doFetch(ctx context.Context, artist, title, album string, duration time.Duration) (Result, error) {
	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)
	if album != "" {
		params.Set("album_name", album)
	}
	if duration > 0 {
		params.Set("duration", strconv.Itoa(int(duration.Round(time.Second).Seconds())))
	}

	reqURL := fmt.Sprintf("%s?%s", c.apiURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create lrclib request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("lrclib request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Result{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("lrclib returned status %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := jsoniter.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Result{}, fmt.Errorf("failed to decode lrclib response: %w", err)
	}

	return Result{
		Synced: apiResp.SyncedLyrics,
		Plain:  apiResp.PlainLyrics,
	}, nil
}

type apiResponse struct {
	SyncedLyrics string `json:"syncedLyrics"`
	PlainLyrics  string `json:"plainLyrics"`
}
