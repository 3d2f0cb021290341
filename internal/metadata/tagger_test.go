package metadata

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.senan.xyz/taglib"
)

// createTestAudioFile generates a short silent file with ffmpeg. The
// container follows ext. Skips the test if ffmpeg is not available.
func createTestAudioFile(t *testing.T, ext string) string {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available, skipping tagger test")
	}

	path := filepath.Join(t.TempDir(), "test"+ext)
	args := []string{"-f", "lavfi", "-i", "anullsrc=r=44100:cl=mono", "-t", "0.1"}
	switch ext {
	case ".mp3":
		args = append(args, "-q:a", "9")
	case ".m4a":
		args = append(args, "-c:a", "aac")
	}
	cmd := exec.Command("ffmpeg", append(args, path)...)
	if err := cmd.Run(); err != nil {
		t.Fatalf("failed to create test audio file: %v", err)
	}
	return path
}

func testCover(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func testTags(t *testing.T) Tags {
	return Tags{
		Title:       "Under Pressure",
		Artists:     []string{"Queen", "David Bowie"},
		Album:       "Hot Space",
		Year:        "1982",
		TrackNumber: 11,
		ISRC:        "GBUM71029604",
		Cover:       testCover(t),
		Lyrics:      "Pressure pushing down on me",
	}
}

func TestWriteMP3(t *testing.T) {
	path := createTestAudioFile(t, ".mp3")
	require.NoError(t, Write(path, testTags(t)))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()

	assert.Equal(t, "Under Pressure", tag.Title())
	assert.Equal(t, "Queen, David Bowie", tag.Artist())
	assert.Equal(t, "Hot Space", tag.Album())
	assert.Equal(t, "1982", tag.Year())
	assert.Equal(t, "11", tag.GetTextFrame("TRCK").Text)
	assert.Equal(t, "GBUM71029604", tag.GetTextFrame("TSRC").Text)

	pictures := tag.GetFrames(tag.CommonID("Attached picture"))
	require.Len(t, pictures, 1)
	pic, ok := pictures[0].(id3v2.PictureFrame)
	require.True(t, ok)
	assert.Equal(t, byte(id3v2.PTFrontCover), pic.PictureType)
	assert.Equal(t, "image/jpeg", pic.MimeType)

	lyrics := tag.GetFrames("USLT")
	require.Len(t, lyrics, 1)
	uslt, ok := lyrics[0].(id3v2.UnsynchronisedLyricsFrame)
	require.True(t, ok)
	assert.Equal(t, "Pressure pushing down on me", uslt.Lyrics)
}

func TestWriteMP3Twice(t *testing.T) {
	path := createTestAudioFile(t, ".mp3")
	require.NoError(t, Write(path, testTags(t)))
	require.NoError(t, Write(path, testTags(t)))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()
	assert.Len(t, tag.GetFrames(tag.CommonID("Attached picture")), 1)
}

func TestWriteFLAC(t *testing.T) {
	path := createTestAudioFile(t, ".flac")
	require.NoError(t, Write(path, testTags(t)))

	f, err := flac.ParseFile(path)
	require.NoError(t, err)

	var cmts *flacvorbis.MetaDataBlockVorbisComment
	pictures := 0
	for _, block := range f.Meta {
		switch block.Type {
		case flac.VorbisComment:
			cmts, err = flacvorbis.ParseFromMetaDataBlock(*block)
			require.NoError(t, err)
		case flac.Picture:
			pictures++
		}
	}
	require.NotNil(t, cmts)
	assert.Equal(t, 1, pictures)

	title, err := cmts.Get(flacvorbis.FIELD_TITLE)
	require.NoError(t, err)
	assert.Equal(t, []string{"Under Pressure"}, title)

	artists, err := cmts.Get(flacvorbis.FIELD_ARTIST)
	require.NoError(t, err)
	assert.Equal(t, []string{"Queen, David Bowie"}, artists, "artists are written as one joined value")

	isrc, err := cmts.Get("ISRC")
	require.NoError(t, err)
	assert.Equal(t, []string{"GBUM71029604"}, isrc)
}

func TestWriteGeneric(t *testing.T) {
	path := createTestAudioFile(t, ".m4a")
	require.NoError(t, Write(path, testTags(t)))

	tags, err := taglib.ReadTags(path)
	require.NoError(t, err)

	checks := map[string]string{
		taglib.Title:  "Under Pressure",
		taglib.Artist: "Queen, David Bowie",
		taglib.Album:  "Hot Space",
		taglib.Date:   "1982",
	}
	for key, want := range checks {
		got := ""
		if vals, ok := tags[key]; ok && len(vals) > 0 {
			got = vals[0]
		}
		assert.Equal(t, want, got, "tag %s", key)
	}

	img, err := taglib.ReadImage(path)
	require.NoError(t, err)
	assert.NotEmpty(t, img)
}

func TestWriteEmptyTags(t *testing.T) {
	path := createTestAudioFile(t, ".mp3")
	assert.NoError(t, Write(path, Tags{}))
}

func TestWriteNonexistentFile(t *testing.T) {
	for _, name := range []string{"missing.mp3", "missing.flac", "missing.m4a"} {
		err := Write(filepath.Join(t.TempDir(), name), Tags{Title: "x"})
		assert.ErrorIs(t, err, ErrTagWrite, name)
	}
}
