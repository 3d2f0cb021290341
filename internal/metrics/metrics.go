// Package metrics exposes Prometheus counters for source resolution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for a single provider attempt.
const (
	OutcomeSearchError = "search_error"
	OutcomeNoResults   = "no_results"
	OutcomeNoMatch     = "no_match"
	OutcomeFetchError  = "fetch_error"
	OutcomeDownloaded  = "downloaded"
)

// Recorder counts provider attempts and match scores. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	attempts *prometheus.CounterVec
	scores   *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotifydl",
			Name:      "provider_attempts_total",
			Help:      "Provider attempts by outcome.",
		}, []string{"provider", "outcome"}),
		scores: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spotifydl",
			Name:      "match_score",
			Help:      "Score of the best candidate per provider search.",
			Buckets:   prometheus.LinearBuckets(0, 1, 13),
		}, []string{"provider"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotifydl",
			Name:      "requests_total",
			Help:      "Download requests by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(r.attempts, r.scores, r.requests)
	return r
}

// Attempt records the outcome of trying one provider.
func (r *Recorder) Attempt(provider, outcome string) {
	if r == nil {
		return
	}
	r.attempts.WithLabelValues(provider, outcome).Inc()
}

// Score records the best candidate score a provider produced.
func (r *Recorder) Score(provider string, score int) {
	if r == nil {
		return
	}
	r.scores.WithLabelValues(provider).Observe(float64(score))
}

// Request records the overall result of one download request.
func (r *Recorder) Request(ok bool) {
	if r == nil {
		return
	}
	result := "failed"
	if ok {
		result = "succeeded"
	}
	r.requests.WithLabelValues(result).Inc()
}
