package soundcloud

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotifydl/internal/match"
	"spotifydl/internal/source"
)

type fakeFetcher struct{ locator string }

func (f *fakeFetcher) FetchAndTag(ctx context.Context, locator string, track match.Track, opts source.FetchOptions) (string, error) {
	f.locator = locator
	return "/music/x.mp3", nil
}

const searchJSON = `{"collection": [
	{
		"id": 1, "title": "Strobe", "duration": 637000,
		"permalink_url": "https://soundcloud.com/deadmau5/strobe",
		"user": {"username": "deadmau5"},
		"publisher_metadata": {"artist": "deadmau5", "isrc": "USUS10900123"}
	},
	{
		"id": 2, "title": "Strobe (Radio Edit)", "duration": 200000,
		"permalink_url": "https://soundcloud.com/someone/strobe-edit",
		"user": {"username": "someone"},
		"publisher_metadata": {}
	},
	{"id": 3, "title": "private", "user": {"username": "x"}}
]}`

var strobe = match.Track{Title: "Strobe", Artists: []string{"deadmau5"}, Duration: 637 * time.Second, ISRC: "USUS10900123"}

func TestSearchWithConfiguredClientID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/tracks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "configured-id-0123456789", r.URL.Query().Get("client_id"))
		assert.Equal(t, "Strobe deadmau5", r.URL.Query().Get("q"))
		w.Write([]byte(searchJSON))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Error("site must not be scraped when a client id is configured")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("configured-id-0123456789", &fakeFetcher{})
	c.apiURL, c.siteURL = srv.URL, srv.URL

	candidates, err := c.Search(context.Background(), strobe)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, match.Candidate{
		Title:      "Strobe",
		ArtistText: "deadmau5",
		Duration:   637 * time.Second,
		Identifier: "USUS10900123",
		Locator:    "https://soundcloud.com/deadmau5/strobe",
	}, candidates[0])
	assert.Equal(t, "someone", candidates[1].ArtistText)

	best, ok := match.SelectBest(strobe, candidates)
	require.True(t, ok)
	assert.Equal(t, 12, best.Score)
}

func TestSearchScrapesClientID(t *testing.T) {
	var pageLoads atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		pageLoads.Add(1)
		w.Write([]byte(`<html><head>
			<script crossorigin src="/assets/0-abc.js"></script>
			<script crossorigin src="/assets/49-def.js"></script>
		</head><body></body></html>`))
	})
	mux.HandleFunc("/assets/0-abc.js", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`var x=1;`))
	})
	mux.HandleFunc("/assets/49-def.js", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`({env:"production",client_id:"ScrapedClientId1234567890abcdef"})`))
	})
	mux.HandleFunc("/search/tracks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ScrapedClientId1234567890abcdef", r.URL.Query().Get("client_id"))
		w.Write([]byte(`{"collection": []}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("", &fakeFetcher{})
	c.apiURL, c.siteURL = srv.URL, srv.URL

	for i := 0; i < 2; i++ {
		candidates, err := c.Search(context.Background(), strobe)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	}
	assert.Equal(t, int32(1), pageLoads.Load(), "scraped id should be cached")
}

func TestSearchNoClientIDIsUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><script src="/a.js"></script></html>`))
	})
	mux.HandleFunc("/a.js", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`nothing here`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("", &fakeFetcher{})
	c.apiURL, c.siteURL = srv.URL, srv.URL

	_, err := c.Search(context.Background(), strobe)
	assert.ErrorIs(t, err, source.ErrProviderUnavailable)
}

func TestSearchRejectedClientIDIsForgotten(t *testing.T) {
	var scrapes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		scrapes.Add(1)
		w.Write([]byte(`<script src="/app.js"></script>`))
	})
	mux.HandleFunc("/app.js", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`client_id:"StaleClientId1234567890"`))
	})
	mux.HandleFunc("/search/tracks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("", &fakeFetcher{})
	c.apiURL, c.siteURL = srv.URL, srv.URL

	_, err := c.Search(context.Background(), strobe)
	assert.ErrorIs(t, err, source.ErrProviderUnavailable)
	_, err = c.Search(context.Background(), strobe)
	assert.ErrorIs(t, err, source.ErrProviderUnavailable)
	assert.Equal(t, int32(2), scrapes.Load())
}

func TestFetchAndTagUsesPermalink(t *testing.T) {
	f := &fakeFetcher{}
	_, err := New("id", f).FetchAndTag(context.Background(), match.Candidate{Locator: "https://soundcloud.com/deadmau5/strobe"}, strobe, source.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://soundcloud.com/deadmau5/strobe", f.locator)
}
