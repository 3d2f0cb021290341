// Package soundcloud finds tracks through the SoundCloud v2 API.
package soundcloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"spotifydl/internal/match"
	"spotifydl/internal/provider"
	"spotifydl/internal/source"
)

// Name identifies the provider in configuration and logs.
const Name = "soundcloud"

var clientIDRe = regexp.MustCompile(`client_id\s*[:=]\s*"([0-9A-Za-z_-]{16,})"`)

// Client implements source.Provider for SoundCloud.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	fetcher    provider.Fetcher

	mu         sync.Mutex
	clientID   string
	configured bool // clientID came from configuration and is never re-scraped

	// Overridable for testing
	apiURL  string
	siteURL string
}

// New creates a SoundCloud provider. An empty clientID is discovered from
// the soundcloud.com web player on first use.
func New(clientID string, fetcher provider.Fetcher) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		fetcher:    fetcher,
		clientID:   clientID,
		configured: clientID != "",
		apiURL:     "https://api-v2.soundcloud.com",
		siteURL:    "https://soundcloud.com",
	}
}

func (c *Client) Name() string { return Name }

// Search runs a track search. Candidates carry the publisher ISRC when the
// uploader supplied one.
func (c *Client) Search(ctx context.Context, track match.Track) ([]match.Candidate, error) {
	clientID, err := c.getClientID(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", track.Title+" "+track.PrimaryArtist())
	params.Set("client_id", clientID)
	params.Set("limit", "10")

	body, status, err := c.get(ctx, c.apiURL+"/search/tracks?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		c.forgetClientID()
		return nil, fmt.Errorf("%w: soundcloud rejected client id (status %d)", source.ErrProviderUnavailable, status)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: soundcloud search returned %d", source.ErrProviderUnavailable, status)
	}

	var resp searchResponse
	if err := jsoniter.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode soundcloud response: %w", err)
	}
	return toCandidates(resp.Collection), nil
}

func (c *Client) FetchAndTag(ctx context.Context, candidate match.Candidate, track match.Track, opts source.FetchOptions) (string, error) {
	return c.fetcher.FetchAndTag(ctx, candidate.Locator, track, opts)
}

func (c *Client) getClientID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clientID != "" {
		return c.clientID, nil
	}
	id, err := c.scrapeClientID(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: no soundcloud client id: %w", source.ErrProviderUnavailable, err)
	}
	c.clientID = id
	return id, nil
}

func (c *Client) forgetClientID() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		c.clientID = ""
	}
}

// scrapeClientID loads the web player and searches its script bundles for
// the public client id, newest bundle first.
func (c *Client) scrapeClientID(ctx context.Context) (string, error) {
	body, status, err := c.get(ctx, c.siteURL+"/")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("soundcloud.com returned %d", status)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse soundcloud.com: %w", err)
	}

	var scripts []string
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			scripts = append(scripts, src)
		}
	})

	base, _ := url.Parse(c.siteURL + "/")
	for i := len(scripts) - 1; i >= 0; i-- {
		ref, err := url.Parse(scripts[i])
		if err != nil {
			continue
		}
		js, status, err := c.get(ctx, base.ResolveReference(ref).String())
		if err != nil {
			return "", err
		}
		if status != http.StatusOK {
			continue
		}
		if m := clientIDRe.FindSubmatch(js); m != nil {
			return string(m[1]), nil
		}
	}
	return "", fmt.Errorf("client id not found in %d scripts", len(scripts))
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create soundcloud request: %w", err)
	}
	req.Header.Set("User-Agent", provider.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: soundcloud request failed: %w", source.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading soundcloud response: %w", source.ErrNetwork, err)
	}
	return body, resp.StatusCode, nil
}

func toCandidates(items []trackItem) []match.Candidate {
	candidates := make([]match.Candidate, 0, len(items))
	for _, item := range items {
		if item.PermalinkURL == "" {
			continue
		}
		artist := item.PublisherMetadata.Artist
		if artist == "" {
			artist = item.User.Username
		} else if item.User.Username != "" && !strings.EqualFold(artist, item.User.Username) {
			artist += ", " + item.User.Username
		}
		candidates = append(candidates, match.Candidate{
			Title:      item.Title,
			ArtistText: artist,
			Duration:   time.Duration(item.Duration) * time.Millisecond,
			Identifier: item.PublisherMetadata.ISRC,
			Locator:    item.PermalinkURL,
		})
	}
	return candidates
}

// SoundCloud API response types

type searchResponse struct {
	Collection []trackItem `json:"collection"`
}

type trackItem struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	Duration          int64  `json:"duration"` // milliseconds
	PermalinkURL      string `json:"permalink_url"`
	User              user   `json:"user"`
	PublisherMetadata struct {
		Artist string `json:"artist"`
		ISRC   string `json:"isrc"`
	} `json:"publisher_metadata"`
}

type user struct {
	Username string `json:"username"`
}
