package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spotifydl/internal/config"
	"spotifydl/internal/pipeline"
)

var (
	cfgFile string
	envFile string
	link    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	root := &cobra.Command{
		Use:   "spotifydl [link]",
		Short: "Download Spotify tracks from alternate sources",
		Long: `spotifydl looks up a Spotify track, finds the same recording on YouTube Music,
Deezer or SoundCloud, downloads it with yt-dlp and writes the Spotify metadata
into the file.`,
		Example: `  spotifydl -u https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC
  spotifydl -s deezer -f flac spotify:track:4uLU6hMCjMI75M1A2tKUQC
  spotifydl batch links.txt -j 8`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDownload,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: search ./spotifydl.yaml, then the user config dir)")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file with credentials")
	pf.StringP("output", "o", defaults.OutputDir, "output directory")
	pf.StringP("format", "f", defaults.Format, "audio format: mp3, m4a, opus, flac, wav, aac, vorbis")
	pf.StringP("quality", "q", defaults.Quality, "audio quality passed to yt-dlp")
	pf.StringP("source", "s", defaults.Source, "source: auto, youtubemusic, deezer, soundcloud")
	pf.StringP("cookies", "c", "", "cookies.txt file for yt-dlp")
	pf.String("cookies-from-browser", "", "browser to load yt-dlp cookies from")
	pf.Bool("lyrics", false, "embed lyrics from LRCLIB")
	pf.IntP("jobs", "j", defaults.ParallelJobs, "parallel downloads for batch (1-10)")
	pf.Duration("timeout", defaults.Timeout, "time limit per track, 0 disables")
	pf.String("history-db", defaults.HistoryDB, "download history database, empty disables")
	pf.BoolP("verbose", "v", false, "show detailed output")

	root.Flags().StringVarP(&link, "url", "u", "", "Spotify track link")

	root.AddCommand(newBatchCmd(), newHistoryCmd(), newInitConfigCmd())
	return root
}

func runDownload(cmd *cobra.Command, args []string) error {
	if link == "" && len(args) == 1 {
		link = args[0]
	}
	if link == "" {
		return fmt.Errorf("a track link is required: spotifydl --url <link>")
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	_, err = a.svc.Download(a.sh.Context(), link, pipeline.Hooks{})
	return err
}
