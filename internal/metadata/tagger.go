package metadata

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.senan.xyz/taglib"
)

// lyricsKey is the unsynchronised lyrics property understood by taglib
// and by Vorbis comment readers.
const lyricsKey = "LYRICS"

// Write embeds tags into the audio file at path. The container is chosen
// by extension: ID3v2.4 for .mp3, Vorbis comments for .flac and taglib's
// generic property map for anything else. Errors wrap ErrTagWrite.
func Write(path string, tags Tags) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		err = writeID3(path, tags)
	case ".flac":
		err = writeFLAC(path, tags)
	default:
		err = writeGeneric(path, tags)
	}
	if err != nil {
		return fmt.Errorf("%w to %s: %v", ErrTagWrite, path, err)
	}
	return nil
}

// writeGeneric writes flat key-value tags through taglib.
func writeGeneric(path string, tags Tags) error {
	props := make(map[string][]string)

	if tags.Title != "" {
		props[taglib.Title] = []string{tags.Title}
	}
	if len(tags.Artists) > 0 {
		props[taglib.Artist] = []string{tags.Artist()}
	}
	if tags.Album != "" {
		props[taglib.Album] = []string{tags.Album}
	}
	if tags.Year != "" {
		props[taglib.Date] = []string{tags.Year}
	}
	if tags.TrackNumber > 0 {
		props[taglib.TrackNumber] = []string{strconv.Itoa(tags.TrackNumber)}
	}
	if tags.ISRC != "" {
		props[taglib.ISRC] = []string{tags.ISRC}
	}
	if tags.Lyrics != "" {
		props[lyricsKey] = []string{tags.Lyrics}
	}

	if err := taglib.WriteTags(path, props, 0); err != nil {
		return err
	}
	if len(tags.Cover) > 0 {
		if err := taglib.WriteImage(path, tags.Cover); err != nil {
			return fmt.Errorf("artwork: %w", err)
		}
	}
	return nil
}
