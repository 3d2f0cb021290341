// Package downloader wraps the yt-dlp command line tool for searching and
// for fetching audio transcoded by ffmpeg.
package downloader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"spotifydl/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoOutput is returned when yt-dlp exits cleanly without reporting a file.
var ErrNoOutput = errors.New("yt-dlp reported no output file")

// Options configures every yt-dlp invocation.
type Options struct {
	Binary             string // defaults to "yt-dlp"
	Cookies            string // Netscape cookies file
	CookiesFromBrowser string // e.g. "firefox", "chrome:Profile 1"
	Verbose            bool
}

// runFunc executes a command and returns its captured stdout and stderr.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Downloader runs yt-dlp.
type Downloader struct {
	opts   Options
	logger *logger.Logger
	run    runFunc
}

// New creates a Downloader.
func New(opts Options, log *logger.Logger) *Downloader {
	if opts.Binary == "" {
		opts.Binary = "yt-dlp"
	}
	return &Downloader{opts: opts, logger: log, run: execRun}
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// SearchResult is one entry of a flat yt-dlp search.
type SearchResult struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"` // seconds, zero when unknown
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
}

// ArtistText returns the best artist description yt-dlp gave for the entry.
func (r SearchResult) ArtistText() string {
	for _, s := range []string{r.Artist, r.Uploader, r.Channel} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Link returns a URL yt-dlp can fetch the entry from.
func (r SearchResult) Link() string {
	switch {
	case r.WebpageURL != "":
		return r.WebpageURL
	case r.URL != "":
		return r.URL
	case r.ID != "":
		return "https://www.youtube.com/watch?v=" + r.ID
	}
	return ""
}

// Search runs a flat "ytsearchN:" query and returns the entries in yt-dlp's
// order. Lines that are not JSON objects are skipped.
func (d *Downloader) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	args := d.searchArgs(query, limit)
	d.logger.Debug("yt-dlp %s", strings.Join(args, " "))

	stdout, stderr, err := d.run(ctx, d.opts.Binary, args...)
	if err != nil {
		return nil, d.toolError(ctx, "search", err, stderr)
	}
	return parseSearchOutput(stdout)
}

func (d *Downloader) searchArgs(query string, limit int) []string {
	if limit <= 0 {
		limit = 5
	}
	args := []string{
		"--dump-json",
		"--flat-playlist",
		"--no-warnings",
	}
	args = append(args, d.cookieArgs()...)
	return append(args, "ytsearch"+strconv.Itoa(limit)+":"+query)
}

func parseSearchOutput(out []byte) ([]SearchResult, error) {
	results := []SearchResult{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var r SearchResult
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		results = append(results, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading yt-dlp output: %w", err)
	}
	return results, nil
}

// FetchRequest describes one download.
type FetchRequest struct {
	URL string
	// OutputStem is the output path without extension; yt-dlp appends the
	// extension of the transcoded file.
	OutputStem string
	Format     string
	Quality    string
}

// Fetch downloads req.URL, extracts audio in the requested format and
// returns the exact path of the file yt-dlp wrote.
func (d *Downloader) Fetch(ctx context.Context, req FetchRequest) (string, error) {
	args := d.fetchArgs(req)
	d.logger.Debug("yt-dlp %s", strings.Join(args, " "))

	stdout, stderr, err := d.run(ctx, d.opts.Binary, args...)
	if err != nil {
		return "", d.toolError(ctx, "download", err, stderr)
	}

	path := lastLine(stdout)
	if path == "" {
		return "", ErrNoOutput
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("yt-dlp output %s: %w", path, err)
	}
	return path, nil
}

func (d *Downloader) fetchArgs(req FetchRequest) []string {
	args := []string{
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", req.Format,
		"--audio-quality", req.Quality,
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"--retries", "10",
		"--fragment-retries", "10",
		"--no-simulate",
		"--print", "after_move:filepath",
		"-o", req.OutputStem + ".%(ext)s",
	}
	args = append(args, d.cookieArgs()...)
	return append(args, req.URL)
}

func (d *Downloader) cookieArgs() []string {
	var args []string
	if d.opts.Cookies != "" {
		args = append(args, "--cookies", d.opts.Cookies)
	}
	// If empty yt-dlp keeps its default (--no-cookies-from-browser)
	if d.opts.CookiesFromBrowser != "" {
		args = append(args, "--cookies-from-browser", d.opts.CookiesFromBrowser)
	}
	return args
}

func (d *Downloader) toolError(ctx context.Context, op string, err error, stderr []byte) error {
	if ctx.Err() != nil {
		return fmt.Errorf("yt-dlp %s cancelled: %w", op, ctx.Err())
	}
	details := strings.TrimSpace(string(stderr))
	if details == "" {
		return fmt.Errorf("yt-dlp %s failed: %w", op, err)
	}
	return fmt.Errorf("yt-dlp %s failed: %w\nDetails: %s", op, err, details)
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
