// Package source resolves a catalog track to downloaded audio by trying
// alternate providers in priority order.
//
// The Provider interface is defined here, where it is consumed. Each
// sub-package of internal/provider implements it for one service.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spotifydl/internal/match"
)

// Provider failure classes. Implementations wrap one of these so the
// orchestrator and callers can tell them apart with errors.Is.
var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrNetwork             = errors.New("network error")
	ErrDownload            = errors.New("download failed")

	// ErrNoSource means every eligible provider was tried without success.
	ErrNoSource = errors.New("no provider produced a download")
)

// ModeAuto tries every registered provider in priority order.
const ModeAuto = "auto"

// FetchOptions controls how a matched candidate is downloaded and stored.
type FetchOptions struct {
	OutputDir string
	Format    string // audio codec, e.g. "mp3"
	Quality   string // bitrate, e.g. "320k"
	Lyrics    bool
}

// Provider is an alternate audio source.
type Provider interface {
	Name() string
	// Search returns candidates in the provider's relevance order. No
	// results is an empty slice and a nil error.
	Search(ctx context.Context, track match.Track) ([]match.Candidate, error)
	// FetchAndTag downloads the candidate, tags it with the track's
	// metadata and returns the final file path.
	FetchAndTag(ctx context.Context, candidate match.Candidate, track match.Track, opts FetchOptions) (string, error)
}

// Plan is the ordered list of providers to try for one request.
type Plan struct {
	Providers []Provider
	// Pinned is set when the user asked for one specific provider; its
	// failures are returned instead of being skipped.
	Pinned bool
}

// Registry holds the known providers in priority order.
type Registry struct {
	providers []Provider
}

// NewRegistry creates a registry. The argument order is the auto-mode priority.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Names lists the registered provider names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Plan builds the provider list for mode: ModeAuto or a provider name.
func (r *Registry) Plan(mode string) (Plan, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" || mode == ModeAuto {
		return Plan{Providers: append([]Provider(nil), r.providers...)}, nil
	}

	for _, p := range r.providers {
		if p.Name() == mode {
			return Plan{Providers: []Provider{p}, Pinned: true}, nil
		}
	}
	return Plan{}, fmt.Errorf("unknown source %q, valid sources: %s, %s", mode, ModeAuto, strings.Join(r.Names(), ", "))
}
