package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"spotifydl/internal/catalog/spotify"
	"spotifydl/internal/match"
	"spotifydl/internal/pipeline"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const timeLayout = "2006-01-02 15:04:05"

type DownloadRequest struct {
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
}

type JobResponse struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Status      JobStatus `json:"status"`
	Title       string    `json:"title,omitempty"`
	Artist      string    `json:"artist,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	Path        string    `json:"path,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   string    `json:"created_at"`
	StartedAt   *string   `json:"started_at,omitempty"`
	CompletedAt *string   `json:"completed_at,omitempty"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		http.Error(w, "URL is required", http.StatusBadRequest)
		return
	}
	if _, err := spotify.ParseTrackLink(req.URL); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	source := req.Source
	if source == "" {
		source = s.source
	}

	job := s.jobMgr.CreateJob(req.URL, source)
	s.logger.Info("Created job %s for URL: %s", job.ID, req.URL)

	ctx, cancel := context.WithCancel(s.ctx)
	_ = s.jobMgr.UpdateJob(job.ID, func(j *Job) {
		j.cancel = cancel
	})
	go s.processJob(ctx, cancel, job)

	writeJSON(w, http.StatusAccepted, jobToResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobMgr.ListJobs()
	responses := make([]*JobResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = jobToResponse(job)
	}
	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobMgr.GetJob(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, jobToResponse(job))
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.jobMgr.Cancel(id) {
		http.Error(w, "job not found: "+id, http.StatusNotFound)
		return
	}
	job, _ := s.jobMgr.GetJob(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(job.Status)})
}

func (s *Server) processJob(ctx context.Context, cancel context.CancelFunc, job Job) {
	defer cancel()

	_ = s.jobMgr.UpdateJob(job.ID, func(j *Job) {
		j.Status = StatusRunning
	})
	s.logger.Info("Starting job %s", job.ID)

	hooks := pipeline.Hooks{
		OnTrack: func(_ string, track match.Track) {
			_ = s.jobMgr.UpdateJob(job.ID, func(j *Job) {
				j.Title = track.Title
				j.Artist = track.JoinedArtists()
			})
		},
	}

	res, err := s.downloader.DownloadWith(ctx, job.URL, job.Source, hooks)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Info("Job %s cancelled", job.ID)
			_ = s.jobMgr.UpdateJob(job.ID, func(j *Job) {
				j.Status = StatusCancelled
			})
			return
		}
		s.logger.Error("Job %s failed: %v", job.ID, err)
		_ = s.jobMgr.UpdateJob(job.ID, func(j *Job) {
			j.Status = StatusFailed
			j.Error = err.Error()
		})
		return
	}

	_ = s.jobMgr.UpdateJob(job.ID, func(j *Job) {
		j.Status = StatusCompleted
		j.Provider = res.Download.Provider
		j.Path = res.Download.Path
	})
	s.logger.Info("Job %s completed successfully", job.ID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jobToResponse(job Job) *JobResponse {
	resp := &JobResponse{
		ID:        job.ID,
		URL:       job.URL,
		Source:    job.Source,
		Status:    job.Status,
		Title:     job.Title,
		Artist:    job.Artist,
		Provider:  job.Provider,
		Path:      job.Path,
		Error:     job.Error,
		CreatedAt: job.CreatedAt.Format(timeLayout),
	}
	resp.StartedAt = formatTime(job.StartedAt)
	resp.CompletedAt = formatTime(job.CompletedAt)
	return resp
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}
