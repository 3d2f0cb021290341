package pipeline

import (
	"context"

	"spotifydl/internal/audio"
	"spotifydl/internal/catalog/spotify"
	"spotifydl/internal/config"
	"spotifydl/internal/downloader"
	"spotifydl/internal/history"
	"spotifydl/internal/logger"
	"spotifydl/internal/lyrics"
	"spotifydl/internal/metrics"
	"spotifydl/internal/provider/deezer"
	"spotifydl/internal/provider/soundcloud"
	"spotifydl/internal/provider/youtube"
	"spotifydl/internal/source"
)

// NewRegistry builds the provider registry in auto-mode priority order:
// YouTube Music, Deezer, SoundCloud.
func NewRegistry(cfg config.Config, log *logger.Logger) *source.Registry {
	dl := downloader.New(downloader.Options{
		Cookies:            cfg.Cookies,
		CookiesFromBrowser: cfg.CookiesFromBrowser,
		Verbose:            cfg.Verbose,
	}, log)
	fetcher := audio.NewFetcher(dl, lyrics.NewClient(), log)

	return source.NewRegistry(
		youtube.New(dl, fetcher),
		deezer.New(dl, fetcher),
		soundcloud.New(cfg.SoundCloudClientID, fetcher),
	)
}

// Build wires a Service with the production collaborators. The returned
// close function releases the history database.
func Build(ctx context.Context, cfg config.Config, log *logger.Logger, rec *metrics.Recorder) (*Service, func() error, error) {
	deps := Deps{
		Catalog:  spotify.New(cfg.SpotifyClientID, cfg.SpotifyClientSecret),
		Registry: NewRegistry(cfg, log),
		Metrics:  rec,
		Logger:   log,
	}

	closeFn := func() error { return nil }
	if cfg.HistoryDB != "" {
		store, err := history.Open(ctx, cfg.HistoryDB)
		if err != nil {
			return nil, nil, err
		}
		deps.History = store
		closeFn = store.Close
	}

	return New(cfg, deps), closeFn, nil
}
