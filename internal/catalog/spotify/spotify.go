// Package spotify fetches track metadata from the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"spotifydl/internal/match"
)

// ErrMetadataFetch wraps every failure to obtain track metadata.
var ErrMetadataFetch = errors.New("failed to fetch track metadata")

// Client is a Spotify Web API client authenticated with client credentials.
type Client struct {
	httpClient *http.Client
	tokens     oauth2.TokenSource

	// Overridable for testing
	apiURL string
}

// New creates a new Spotify client.
func New(clientID, clientSecret string) *Client {
	return newClient(clientID, clientSecret, "https://accounts.spotify.com/api/token", "https://api.spotify.com/v1")
}

func newClient(clientID, clientSecret, tokenURL, apiURL string) *Client {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	return &Client{
		httpClient: httpClient,
		tokens:     cfg.TokenSource(tokenCtx),
		apiURL:     apiURL,
	}
}

// GetTrack returns the catalog description of the track with the given id.
func (c *Client) GetTrack(ctx context.Context, id string) (match.Track, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return match.Track{}, fmt.Errorf("%w: spotify auth failed: %w", ErrMetadataFetch, err)
	}

	reqURL := fmt.Sprintf("%s/tracks/%s", c.apiURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return match.Track{}, fmt.Errorf("%w: %w", ErrMetadataFetch, err)
	}
	token.SetAuthHeader(req)

	resp, err := c.doWithRetry(req)
	if err != nil {
		return match.Track{}, fmt.Errorf("%w: spotify request failed: %w", ErrMetadataFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return match.Track{}, fmt.Errorf("%w: spotify returned %d: %s", ErrMetadataFetch, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var item trackItem
	if err := jsoniter.NewDecoder(resp.Body).Decode(&item); err != nil {
		return match.Track{}, fmt.Errorf("%w: failed to decode spotify response: %w", ErrMetadataFetch, err)
	}

	track := item.toTrack()
	if track.ExternalID == "" {
		track.ExternalID = id
	}
	return track, nil
}

// TrackFromLink parses link and fetches the track it names.
func (c *Client) TrackFromLink(ctx context.Context, link string) (match.Track, error) {
	id, err := ParseTrackLink(link)
	if err != nil {
		return match.Track{}, err
	}
	return c.GetTrack(ctx, id)
}

// doWithRetry executes the request, retrying once on 429.
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		retryAfter := 1
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if parsed, err := strconv.Atoi(ra); err == nil {
				retryAfter = parsed
			}
		}
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(time.Duration(retryAfter) * time.Second):
		}

		retry := req.Clone(req.Context())
		return c.httpClient.Do(retry)
	}

	return resp, nil
}

func (item trackItem) toTrack() match.Track {
	artists := make([]string, 0, len(item.Artists))
	for _, a := range item.Artists {
		artists = append(artists, a.Name)
	}

	return match.Track{
		Title:       item.Name,
		Artists:     artists,
		Album:       item.Album.Name,
		Duration:    time.Duration(item.DurationMs) * time.Millisecond,
		ISRC:        item.ExternalIDs.ISRC,
		ReleaseYear: parseYear(item.Album.ReleaseDate),
		TrackNumber: item.TrackNumber,
		CoverArtURL: largestImage(item.Album.Images),
		ExternalID:  item.ID,
	}
}

func largestImage(images []image) string {
	best, bestArea := "", -1
	for _, img := range images {
		if area := img.Width * img.Height; area > bestArea {
			best, bestArea = img.URL, area
		}
	}
	return best
}

func parseYear(releaseDate string) string {
	if len(releaseDate) >= 4 {
		if _, err := strconv.Atoi(releaseDate[:4]); err == nil {
			return releaseDate[:4]
		}
	}
	return ""
}

// Spotify API response types

type trackItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Artists     []artist   `json:"artists"`
	Album       albumInfo  `json:"album"`
	TrackNumber int        `json:"track_number"`
	DurationMs  int        `json:"duration_ms"`
	ExternalIDs externalID `json:"external_ids"`
}

type artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type albumInfo struct {
	Name        string  `json:"name"`
	ReleaseDate string  `json:"release_date"`
	Images      []image `json:"images"`
}

type image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type externalID struct {
	ISRC string `json:"isrc"`
}
