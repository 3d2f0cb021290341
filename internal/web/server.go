// Package web serves a small HTTP API that queues single-track downloads
// and pushes job updates over WebSocket.
package web

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spotifydl/internal/logger"
	"spotifydl/internal/pipeline"
)

// Downloader runs one download request.
type Downloader interface {
	DownloadWith(ctx context.Context, link, mode string, hooks pipeline.Hooks) (*pipeline.Result, error)
}

type Server struct {
	ctx        context.Context
	jobMgr     *JobManager
	downloader Downloader
	source     string
	gatherer   prometheus.Gatherer
	logger     *logger.Logger
}

// NewServer creates a server. Jobs run under ctx, so cancelling it stops
// every running download. defaultSource is used when a request names none.
func NewServer(ctx context.Context, jobMgr *JobManager, dl Downloader, defaultSource string, gatherer prometheus.Gatherer, log *logger.Logger) *Server {
	return &Server{
		ctx:        ctx,
		jobMgr:     jobMgr,
		downloader: dl,
		source:     defaultSource,
		gatherer:   gatherer,
		logger:     log,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/download", s.handleDownload)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", s.handleCancelJob)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return s.loggingMiddleware(mux)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
