package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spotifydl/internal/pipeline"
	"spotifydl/internal/progress"
	"spotifydl/pkg/utils"
)

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file>",
		Short: "Download every track link listed in a file",
		Long:  "Reads one Spotify track link per line (blank lines and # comments are skipped) and downloads them in parallel.",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open link file: %w", err)
	}
	links, err := utils.ReadLinks(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to read link file: %w", err)
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	links, _ = pipeline.UniqueLinks(links)

	var hooks pipeline.Hooks
	var bar *progress.Bar
	if !a.cfg.Verbose && len(links) > 0 {
		bar = progress.New(os.Stdout, len(links))
		a.log.SetProgressBar(true)
	}
	if bar != nil {
		hooks.OnProgress = func(_ string, err error) { bar.Increment(err != nil) }
	}

	stats, err := a.svc.DownloadBatch(a.sh.Context(), links, hooks)

	if bar != nil {
		bar.Finish()
		a.log.SetProgressBar(false)
	}

	printSummary(stats)
	return err
}

func printSummary(stats pipeline.BatchStats) {
	failed := color.New(color.FgRed)
	for _, f := range stats.Failures {
		failed.Fprintf(os.Stderr, "  %s: %v\n", f.Link, f.Err)
	}

	summary := color.New(color.FgGreen)
	if len(stats.Failures) > 0 {
		summary = color.New(color.FgYellow)
	}
	summary.Printf("%d of %d tracks downloaded, %d failed\n", stats.Successful, stats.Total, len(stats.Failures))
	if stats.Duplicates > 0 {
		fmt.Printf("%d duplicate links skipped\n", stats.Duplicates)
	}
}
