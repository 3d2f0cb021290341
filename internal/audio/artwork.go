package audio

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"

	"github.com/nfnt/resize"
)

const (
	maxCoverSize  = 1000 // px, longest edge
	maxCoverBytes = 20 << 20
)

// fetchCover downloads the image at url and returns it as a JPEG whose
// longest edge is at most maxCoverSize. Processed covers are cached by URL.
func (f *Fetcher) fetchCover(ctx context.Context, url string) ([]byte, error) {
	if data, ok := f.covers.Get(url); ok {
		return data, nil
	}

	scratch, err := os.CreateTemp("", "spotifydl-cover-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create cover scratch file: %w", err)
	}
	defer os.Remove(scratch.Name())
	defer scratch.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cover request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cover request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover request returned status %d", resp.StatusCode)
	}
	if _, err := io.Copy(scratch, io.LimitReader(resp.Body, maxCoverBytes)); err != nil {
		return nil, fmt.Errorf("failed to read cover: %w", err)
	}
	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	data, err := processCover(scratch)
	if err != nil {
		return nil, err
	}
	f.covers.Add(url, data)
	return data, nil
}

// processCover decodes a JPEG or PNG, shrinks it to fit maxCoverSize and
// re-encodes it as JPEG.
func processCover(r io.Reader) ([]byte, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > maxCoverSize || b.Dy() > maxCoverSize {
		img = resize.Thumbnail(maxCoverSize, maxCoverSize, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode cover: %w", err)
	}
	return buf.Bytes(), nil
}
