package source

import (
	"context"

	"spotifydl/internal/logger"
	"spotifydl/internal/match"
	"spotifydl/internal/metrics"
)

// Download describes a successful resolution.
type Download struct {
	Provider string
	Match    match.Result
	Path     string
}

// Orchestrator tries providers one at a time and stops at the first one
// that yields a downloaded file.
type Orchestrator struct {
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// NewOrchestrator creates an Orchestrator. rec may be nil.
func NewOrchestrator(log *logger.Logger, rec *metrics.Recorder) *Orchestrator {
	return &Orchestrator{logger: log, metrics: rec}
}

// Resolve searches the plan's providers in order, downloads the first
// accepted match and returns where it was written.
//
// Search and fetch failures move on to the next provider unless the plan
// is pinned, in which case the provider's error is returned unchanged.
// ErrNoSource is returned once every provider has been tried, unless ctx
// ended first.
func (o *Orchestrator) Resolve(ctx context.Context, track match.Track, plan Plan, opts FetchOptions) (*Download, error) {
	if err := track.Validate(); err != nil {
		return nil, err
	}

	for _, p := range plan.Providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := p.Name()

		candidates, err := p.Search(ctx, track)
		if err != nil {
			o.metrics.Attempt(name, metrics.OutcomeSearchError)
			if plan.Pinned {
				return nil, err
			}
			o.logger.Warn("%s: search failed, trying next source: %v", name, err)
			continue
		}
		if len(candidates) == 0 {
			o.metrics.Attempt(name, metrics.OutcomeNoResults)
			o.logger.Debug("%s: no results", name)
			continue
		}

		best, ok := match.SelectBest(track, candidates)
		if !ok {
			o.metrics.Attempt(name, metrics.OutcomeNoMatch)
			o.logger.Debug("%s: %d candidates, none reached score %d", name, len(candidates), match.AcceptScore)
			continue
		}
		o.metrics.Score(name, best.Score)
		o.logger.Info("%s: matched %q by %q (score %d)", name, best.Candidate.Title, best.Candidate.ArtistText, best.Score)

		path, err := p.FetchAndTag(ctx, best.Candidate, track, opts)
		if err != nil {
			o.metrics.Attempt(name, metrics.OutcomeFetchError)
			if plan.Pinned {
				return nil, err
			}
			o.logger.Warn("%s: download failed, trying next source: %v", name, err)
			continue
		}

		o.metrics.Attempt(name, metrics.OutcomeDownloaded)
		return &Download{Provider: name, Match: best, Path: path}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoSource
}
