// Package pipeline runs a download request end to end: catalog lookup,
// source resolution and archiving.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"spotifydl/internal/catalog/spotify"
	"spotifydl/internal/config"
	"spotifydl/internal/history"
	"spotifydl/internal/logger"
	"spotifydl/internal/match"
	"spotifydl/internal/metrics"
	"spotifydl/internal/source"
)

// Catalog resolves a track link to its metadata.
type Catalog interface {
	TrackFromLink(ctx context.Context, link string) (match.Track, error)
}

// Archive records completed downloads.
type Archive interface {
	Record(ctx context.Context, e history.Entry) error
}

// Hooks are optional callbacks for progress reporting.
type Hooks struct {
	OnTrack    func(link string, track match.Track)
	// OnProgress is called by DownloadBatch after each link finishes; err
	// is nil on success.
	OnProgress func(link string, err error)
	OnWarning  func(msg string)
}

// Deps are the collaborators a Service uses. History and Metrics may be nil.
type Deps struct {
	Catalog  Catalog
	Registry *source.Registry
	History  Archive
	Metrics  *metrics.Recorder
	Logger   *logger.Logger
}

// Service downloads tracks named by catalog links.
type Service struct {
	deps         Deps
	orchestrator *source.Orchestrator
	mode         string
	fetch        source.FetchOptions
	timeout      time.Duration
	jobs         int
}

// New creates a Service from the configuration.
func New(cfg config.Config, deps Deps) *Service {
	return &Service{
		deps:         deps,
		orchestrator: source.NewOrchestrator(deps.Logger, deps.Metrics),
		mode:         cfg.Source,
		fetch: source.FetchOptions{
			OutputDir: cfg.OutputDir,
			Format:    cfg.Format,
			Quality:   cfg.Quality,
			Lyrics:    cfg.Lyrics,
		},
		timeout: cfg.Timeout,
		jobs:    cfg.ParallelJobs,
	}
}

// Result describes one completed download.
type Result struct {
	Track    match.Track
	Download *source.Download
}

// Download fetches the track named by link. The configured timeout bounds
// the whole request.
func (s *Service) Download(ctx context.Context, link string, hooks Hooks) (*Result, error) {
	return s.DownloadWith(ctx, link, s.mode, hooks)
}

// DownloadWith is Download with an explicit source mode.
func (s *Service) DownloadWith(ctx context.Context, link, mode string, hooks Hooks) (*Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.download(ctx, link, mode, hooks)
	s.deps.Metrics.Request(err == nil)
	return res, err
}

func (s *Service) download(ctx context.Context, link, mode string, hooks Hooks) (*Result, error) {
	plan, err := s.deps.Registry.Plan(mode)
	if err != nil {
		return nil, err
	}

	track, err := s.deps.Catalog.TrackFromLink(ctx, link)
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Info("Downloading: %s - %s", track.Title, track.JoinedArtists())
	if hooks.OnTrack != nil {
		hooks.OnTrack(link, track)
	}

	dl, err := s.orchestrator.Resolve(ctx, track, plan, s.fetch)
	if err != nil {
		s.deps.Logger.Debug("no download for %s - %s: %v", track.PrimaryArtist(), track.Title, err)
		return nil, err
	}
	s.deps.Logger.Info("Saved %s (from %s)", dl.Path, dl.Provider)

	if s.deps.History != nil {
		entry := history.Entry{
			TrackID:  track.ExternalID,
			Title:    track.Title,
			Artist:   track.JoinedArtists(),
			Provider: dl.Provider,
			Locator:  dl.Match.Candidate.Locator,
			Score:    dl.Match.Score,
			Path:     dl.Path,
		}
		if err := s.deps.History.Record(context.WithoutCancel(ctx), entry); err != nil {
			msg := fmt.Sprintf("failed to archive download: %v", err)
			s.deps.Logger.Warn(msg)
			if hooks.OnWarning != nil {
				hooks.OnWarning(msg)
			}
		}
	}

	return &Result{Track: track, Download: dl}, nil
}

// Failure is a link that could not be downloaded.
type Failure struct {
	Link string
	Err  error
}

// BatchStats summarises a batch run. Total counts distinct tracks.
type BatchStats struct {
	Total      int
	Successful int
	Duplicates int
	Failures   []Failure
}

// UniqueLinks drops links naming a track already listed earlier, keeping
// the first occurrence. Links that do not parse are compared as text.
// Two requests for one track would share a temporary download path.
func UniqueLinks(links []string) (unique []string, duplicates int) {
	seen := make(map[string]bool, len(links))
	for _, l := range links {
		key := strings.TrimSpace(l)
		if id, err := spotify.ParseTrackLink(key); err == nil {
			key = id
		}
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true
		unique = append(unique, l)
	}
	return unique, duplicates
}

// DownloadBatch downloads links concurrently, at most ParallelJobs at a
// time. Repeated tracks are downloaded once. Each link succeeds or fails on its own; an error is returned only
// when every link failed or ctx was cancelled.
func (s *Service) DownloadBatch(ctx context.Context, links []string, hooks Hooks) (BatchStats, error) {
	if len(links) == 0 {
		return BatchStats{}, fmt.Errorf("no links to download")
	}
	links, dups := UniqueLinks(links)
	stats := BatchStats{Total: len(links), Duplicates: dups}
	if dups > 0 {
		s.deps.Logger.Info("Skipping %d duplicate links", dups)
	}

	s.deps.Logger.Info("=== Starting download (%d tracks, %d parallel) ===", len(links), s.jobs)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(max(s.jobs, 1))

	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, err := s.Download(ctx, link, hooks)

			mu.Lock()
			if err != nil {
				stats.Failures = append(stats.Failures, Failure{Link: link, Err: err})
			} else {
				stats.Successful++
			}
			mu.Unlock()

			if err != nil && ctx.Err() == nil {
				s.deps.Logger.Warn("%s: %v", link, err)
			}
			if hooks.OnProgress != nil {
				hooks.OnProgress(link, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("downloads cancelled: %w", err)
	}
	if stats.Successful == 0 {
		return stats, fmt.Errorf("all %d downloads failed: %w", stats.Total, errors.Join(failureErrors(stats.Failures)...))
	}

	s.deps.Logger.Info("Download completed: %d successful, %d failed", stats.Successful, len(stats.Failures))
	return stats, nil
}

func failureErrors(failures []Failure) []error {
	errs := make([]error, len(failures))
	for i, f := range failures {
		errs[i] = f.Err
	}
	return errs
}
