package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"spotifydl/internal/match"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"AC/DC - Back in Black", "AC_DC - Back in Black"},
		{"AC/DC: Back in Black?", "AC_DC_ Back in Black_"},
		{`a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"  Plain Name  ", "Plain Name"},
		{"Beyoncé - Halo", "Beyoncé - Halo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), tt.in)
	}
}

func TestFromTrack(t *testing.T) {
	tr := match.Track{
		Title:       "Under Pressure",
		Artists:     []string{"Queen", "David Bowie"},
		Album:       "Hot Space",
		Duration:    248 * time.Second,
		ISRC:        "GBUM71029604",
		ReleaseYear: "1982",
		TrackNumber: 11,
	}
	tags := FromTrack(tr)
	assert.Equal(t, "Queen, David Bowie", tags.Artist())
	assert.Equal(t, "1982", tags.Year)
	assert.Equal(t, 11, tags.TrackNumber)
	assert.Equal(t, "GBUM71029604", tags.ISRC)
	assert.Empty(t, tags.Cover)
}
