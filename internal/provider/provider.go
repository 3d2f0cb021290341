// Package provider contains alternate audio source implementations
// (YouTube Music, Deezer, SoundCloud).
//
// The Provider interface is defined in internal/source (source.Provider),
// following the Go convention of defining interfaces where they are consumed.
// Each sub-package here implements that interface for a specific service and
// hands the download itself to a shared Fetcher.
package provider

import (
	"context"

	"spotifydl/internal/match"
	"spotifydl/internal/source"
)

// Fetcher downloads a locator, tags the result and returns its final path.
// *audio.Fetcher implements it.
type Fetcher interface {
	FetchAndTag(ctx context.Context, locator string, track match.Track, opts source.FetchOptions) (string, error)
}

// UserAgent is sent with every provider HTTP request.
const UserAgent = "spotifydl/1.0"
