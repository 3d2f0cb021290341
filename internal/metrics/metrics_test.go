package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.Attempt("deezer", OutcomeNoMatch)
	r.Attempt("deezer", OutcomeNoMatch)
	r.Attempt("youtubemusic", OutcomeDownloaded)
	r.Request(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.attempts.WithLabelValues("deezer", OutcomeNoMatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.attempts.WithLabelValues("youtubemusic", OutcomeDownloaded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("succeeded")))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Attempt("deezer", OutcomeNoResults)
		r.Score("deezer", 7)
		r.Request(false)
	})
}
