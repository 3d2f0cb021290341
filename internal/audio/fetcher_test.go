package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotifydl/internal/downloader"
	"spotifydl/internal/logger"
	"spotifydl/internal/match"
	"spotifydl/internal/metadata"
	"spotifydl/internal/source"
)

type fakeTool struct {
	ext   string
	err   error
	req   downloader.FetchRequest
	extra bool // also leave a partial file behind
}

func (f *fakeTool) Fetch(ctx context.Context, req downloader.FetchRequest) (string, error) {
	f.req = req
	if f.extra {
		os.WriteFile(req.OutputStem+".webm.part", []byte("partial"), 0644)
	}
	if f.err != nil {
		return "", f.err
	}
	path := req.OutputStem + f.ext
	if err := os.WriteFile(path, []byte("audio:"+req.URL), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeLyrics struct{ text string }

func (f fakeLyrics) ForTrack(ctx context.Context, track match.Track) (string, error) {
	return f.text, nil
}

func testTrack() match.Track {
	return match.Track{
		Title:       "Back in Black?",
		Artists:     []string{"AC/DC"},
		Album:       "Back in Black",
		Duration:    255 * time.Second,
		ISRC:        "AUAP08000046",
		ReleaseYear: "1980",
		TrackNumber: 6,
		ExternalID:  "08mG3Y1vljYA6bvDt4Wqkj",
	}
}

func newTestFetcher(tool MediaTool) (*Fetcher, *[]metadata.Tags) {
	f := NewFetcher(tool, fakeLyrics{text: "Back in black"}, logger.NewNop())
	var written []metadata.Tags
	f.writeTags = func(path string, tags metadata.Tags) error {
		written = append(written, tags)
		return nil
	}
	return f, &written
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFetchAndTag(t *testing.T) {
	out := t.TempDir()
	tool := &fakeTool{ext: ".mp3"}
	f, written := newTestFetcher(tool)

	path, err := f.FetchAndTag(context.Background(), "https://www.youtube.com/watch?v=pAgnJDJN4VA", testTrack(),
		source.FetchOptions{OutputDir: out, Format: "mp3", Quality: "320k", Lyrics: true})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "AC_DC - Back in Black_.mp3"), path)
	assert.Equal(t, []string{"AC_DC - Back in Black_.mp3"}, dirNames(t, out))
	assert.Equal(t, TempStem(out, testTrack()), tool.req.OutputStem)
	assert.Equal(t, "mp3", tool.req.Format)
	assert.Equal(t, "320k", tool.req.Quality)

	require.Len(t, *written, 1)
	tags := (*written)[0]
	assert.Equal(t, "AC/DC", tags.Artist())
	assert.Equal(t, "AUAP08000046", tags.ISRC)
	assert.Equal(t, "Back in black", tags.Lyrics)
	assert.Empty(t, tags.Cover)
}

func TestFetchAndTagReplacesExistingFile(t *testing.T) {
	out := t.TempDir()
	final := filepath.Join(out, "AC_DC - Back in Black_.mp3")
	require.NoError(t, os.WriteFile(final, []byte("old"), 0644))

	f, _ := newTestFetcher(&fakeTool{ext: ".mp3"})
	path, err := f.FetchAndTag(context.Background(), "new", testTrack(), source.FetchOptions{OutputDir: out, Format: "mp3", Quality: "320k"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "audio:new", string(data))
}

func TestFetchAndTagDownloadFailureCleansUp(t *testing.T) {
	out := t.TempDir()
	f, written := newTestFetcher(&fakeTool{err: errors.New("HTTP Error 403"), extra: true})

	_, err := f.FetchAndTag(context.Background(), "x", testTrack(), source.FetchOptions{OutputDir: out, Format: "mp3", Quality: "320k"})
	assert.ErrorIs(t, err, source.ErrDownload)
	assert.Empty(t, dirNames(t, out))
	assert.Empty(t, *written)
}

func TestFetchAndTagTagFailureIsWarning(t *testing.T) {
	out := t.TempDir()
	f, _ := newTestFetcher(&fakeTool{ext: ".opus"})
	f.writeTags = func(string, metadata.Tags) error {
		return fmt.Errorf("%w: unsupported", metadata.ErrTagWrite)
	}

	path, err := f.FetchAndTag(context.Background(), "x", testTrack(), source.FetchOptions{OutputDir: out, Format: "opus", Quality: "0"})
	require.NoError(t, err)
	assert.Equal(t, ".opus", filepath.Ext(path))
	assert.FileExists(t, path)
}

func TestFetchAndTagCancelledAfterDownload(t *testing.T) {
	out := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	f, _ := newTestFetcher(&fakeTool{ext: ".mp3"})
	f.writeTags = func(string, metadata.Tags) error {
		cancel()
		return nil
	}

	_, err := f.FetchAndTag(ctx, "x", testTrack(), source.FetchOptions{OutputDir: out, Format: "mp3", Quality: "320k"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dirNames(t, out))
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		img.Set(x, 0, color.RGBA{G: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFetchAndTagCoverArt(t *testing.T) {
	var hits atomic.Int32
	cover := pngImage(t, 2000, 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(cover)
	}))
	defer srv.Close()

	out := t.TempDir()
	f, written := newTestFetcher(&fakeTool{ext: ".mp3"})
	track := testTrack()
	track.CoverArtURL = srv.URL + "/cover.png"

	for i := 0; i < 2; i++ {
		_, err := f.FetchAndTag(context.Background(), "x", track, source.FetchOptions{OutputDir: out, Format: "mp3", Quality: "320k"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load(), "cover should be cached by URL")

	require.Len(t, *written, 2)
	img, err := jpeg.Decode(bytes.NewReader((*written)[0].Cover))
	require.NoError(t, err)
	assert.Equal(t, 1000, img.Bounds().Dx())
	assert.Equal(t, 500, img.Bounds().Dy())
}

func TestFetchAndTagCoverFailureIsWarning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	out := t.TempDir()
	f, written := newTestFetcher(&fakeTool{ext: ".mp3"})
	track := testTrack()
	track.CoverArtURL = srv.URL

	_, err := f.FetchAndTag(context.Background(), "x", track, source.FetchOptions{OutputDir: out, Format: "mp3", Quality: "320k"})
	require.NoError(t, err)
	require.Len(t, *written, 1)
	assert.Empty(t, (*written)[0].Cover)
}

func TestProcessCoverKeepsSmallImages(t *testing.T) {
	data, err := processCover(bytes.NewReader(pngImage(t, 640, 640)))
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
}

func TestProcessCoverRejectsGarbage(t *testing.T) {
	_, err := processCover(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

// stallingTool leaves its temporary file in place and stalls the first
// call until released. Later calls fail.
type stallingTool struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (s *stallingTool) Fetch(ctx context.Context, req downloader.FetchRequest) (string, error) {
	if s.calls.Add(1) > 1 {
		return "", errors.New("HTTP Error 403")
	}
	path := req.OutputStem + ".mp3"
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		return "", err
	}
	close(s.entered)
	<-s.release
	return path, nil
}

func TestFetchAndTagSameTrackConcurrently(t *testing.T) {
	out := t.TempDir()
	tool := &stallingTool{entered: make(chan struct{}), release: make(chan struct{})}
	f, _ := newTestFetcher(tool)
	opts := source.FetchOptions{OutputDir: out, Format: "mp3", Quality: "320k"}

	first := make(chan error, 1)
	go func() {
		_, err := f.FetchAndTag(context.Background(), "a", testTrack(), opts)
		first <- err
	}()
	<-tool.entered

	second := make(chan error, 1)
	go func() {
		_, err := f.FetchAndTag(context.Background(), "b", testTrack(), opts)
		second <- err
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), tool.calls.Load(), "second call must wait for the first")
	close(tool.release)

	require.NoError(t, <-first)
	assert.ErrorIs(t, <-second, source.ErrDownload)
	assert.Equal(t, []string{"AC_DC - Back in Black_.mp3"}, dirNames(t, out))
}

func TestFetchAndTagWaitHonoursContext(t *testing.T) {
	out := t.TempDir()
	tool := &stallingTool{entered: make(chan struct{}), release: make(chan struct{})}
	f, _ := newTestFetcher(tool)
	opts := source.FetchOptions{OutputDir: out, Format: "mp3", Quality: "320k"}

	first := make(chan error, 1)
	go func() {
		_, err := f.FetchAndTag(context.Background(), "a", testTrack(), opts)
		first <- err
	}()
	<-tool.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.FetchAndTag(ctx, "b", testTrack(), opts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(tool.release)
	require.NoError(t, <-first)
}

func TestFetchCoverRemovesScratchFile(t *testing.T) {
	cover := pngImage(t, 64, 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Write(cover)
		case "/garbage.png":
			w.Write([]byte("not an image"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	f, _ := newTestFetcher(&fakeTool{ext: ".mp3"})

	tests := []struct {
		path    string
		wantErr bool
	}{
		{"/ok.png", false},
		{"/missing.png", true},
		{"/garbage.png", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			data, err := f.fetchCover(context.Background(), srv.URL+tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, data)
			}

			left, err := filepath.Glob(filepath.Join(tmp, "spotifydl-cover-*"))
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}
}
