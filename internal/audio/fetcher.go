// Package audio turns a matched provider locator into a tagged audio file
// in the output directory.
package audio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"spotifydl/internal/downloader"
	"spotifydl/internal/logger"
	"spotifydl/internal/match"
	"spotifydl/internal/metadata"
	"spotifydl/internal/source"
	"spotifydl/pkg/utils"
)

// MediaTool downloads and transcodes a locator to an exact file path.
type MediaTool interface {
	Fetch(ctx context.Context, req downloader.FetchRequest) (string, error)
}

// LyricsFinder returns lyrics for a track, or "" when none exist.
type LyricsFinder interface {
	ForTrack(ctx context.Context, track match.Track) (string, error)
}

// Fetcher implements the download, tag and rename sequence shared by all
// providers.
type Fetcher struct {
	tool       MediaTool
	lyrics     LyricsFinder
	logger     *logger.Logger
	httpClient *http.Client
	covers     *lru.Cache[string, []byte]
	stems      *stemLocks
	writeTags  func(path string, tags metadata.Tags) error
}

// NewFetcher creates a Fetcher. lyr may be nil.
func NewFetcher(tool MediaTool, lyr LyricsFinder, log *logger.Logger) *Fetcher {
	covers, _ := lru.New[string, []byte](64)
	return &Fetcher{
		tool:       tool,
		lyrics:     lyr,
		logger:     log,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		covers:     covers,
		stems:      newStemLocks(),
		writeTags:  metadata.Write,
	}
}

// FetchAndTag downloads locator into opts.OutputDir, tags it with track and
// returns the final path. Tagging problems are logged, not returned. Any
// failure before the final rename leaves no temporary files behind.
// Concurrent calls for the same track and directory run one at a time.
func (f *Fetcher) FetchAndTag(ctx context.Context, locator string, track match.Track, opts source.FetchOptions) (string, error) {
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	stem := TempStem(opts.OutputDir, track)
	unlock, err := f.stems.lock(ctx, stem)
	if err != nil {
		return "", err
	}
	defer unlock()

	cleanup := func() {
		if err := utils.RemoveWithPrefix(stem + "."); err != nil {
			f.logger.Warn("failed to remove temporary files for %s: %v", stem, err)
		}
	}

	tmpPath, err := f.tool.Fetch(ctx, downloader.FetchRequest{
		URL:        locator,
		OutputStem: stem,
		Format:     opts.Format,
		Quality:    opts.Quality,
	})
	if err != nil {
		cleanup()
		return "", fmt.Errorf("%w: %w", source.ErrDownload, err)
	}
	f.logger.Debug("downloaded %s", tmpPath)

	tags := metadata.FromTrack(track)
	if track.CoverArtURL != "" {
		cover, err := f.fetchCover(ctx, track.CoverArtURL)
		if err != nil {
			f.logger.Warn("cover art unavailable for %q: %v", track.Title, err)
		}
		tags.Cover = cover
	}
	if opts.Lyrics && f.lyrics != nil {
		text, err := f.lyrics.ForTrack(ctx, track)
		if err != nil {
			f.logger.Warn("lyrics lookup failed for %q: %v", track.Title, err)
		}
		tags.Lyrics = text
	}

	if err := f.writeTags(tmpPath, tags); err != nil {
		f.logger.Warn("%v", err)
	}

	if err := ctx.Err(); err != nil {
		cleanup()
		return "", err
	}

	finalPath := FinalPath(opts.OutputDir, track, filepath.Ext(tmpPath))
	if err := os.Remove(finalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		cleanup()
		return "", fmt.Errorf("failed to replace %s: %w", finalPath, err)
	}
	if err := utils.MoveFile(tmpPath, finalPath); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: %w", source.ErrDownload, err)
	}

	return finalPath, nil
}
