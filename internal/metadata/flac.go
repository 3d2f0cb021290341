package metadata

import (
	"fmt"
	"strconv"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

func writeFLAC(path string, tags Tags) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return err
	}

	// Replace existing comment and picture blocks.
	var kept []*flac.MetaDataBlock
	for _, block := range f.Meta {
		if block.Type == flac.VorbisComment {
			continue
		}
		if block.Type == flac.Picture && len(tags.Cover) > 0 {
			continue
		}
		kept = append(kept, block)
	}
	f.Meta = kept

	cmts := flacvorbis.New()
	addComment(cmts, flacvorbis.FIELD_TITLE, tags.Title)
	addComment(cmts, flacvorbis.FIELD_ARTIST, tags.Artist())
	addComment(cmts, flacvorbis.FIELD_ALBUM, tags.Album)
	addComment(cmts, flacvorbis.FIELD_DATE, tags.Year)
	if tags.TrackNumber > 0 {
		addComment(cmts, flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(tags.TrackNumber))
	}
	addComment(cmts, "ISRC", tags.ISRC)
	addComment(cmts, lyricsKey, tags.Lyrics)
	cmtBlock := cmts.Marshal()
	f.Meta = append(f.Meta, &cmtBlock)

	if len(tags.Cover) > 0 {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front Cover", tags.Cover, "image/jpeg")
		if err != nil {
			return fmt.Errorf("artwork: %w", err)
		}
		picBlock := pic.Marshal()
		f.Meta = append(f.Meta, &picBlock)
	}

	return f.Save(path)
}

func addComment(cmts *flacvorbis.MetaDataBlockVorbisComment, field, value string) {
	if value != "" {
		_ = cmts.Add(field, value)
	}
}
