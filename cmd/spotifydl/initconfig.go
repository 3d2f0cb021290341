package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spotifydl/internal/config"
)

func newInitConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Create a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile(cfgFile, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

// initConfigFile writes the defaults to path, or the default location
// when path is empty.
func initConfigFile(path string, force bool) error {
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !force {
		fmt.Printf("Config file already exists at: %s\n", path)
		fmt.Println("Use --force to overwrite it.")
		return nil
	}

	if err := config.SaveConfigFile(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Printf("Created default config file at: %s\n", path)
	fmt.Println("\nYou can now edit this file to customize your settings.")
	fmt.Println("Available options:")
	fmt.Println("  source: auto, youtubemusic, deezer, soundcloud")
	fmt.Println("  format: mp3, m4a, opus, flac, wav, aac, vorbis")
	fmt.Println("  parallel_jobs: 1-10 (number of parallel downloads in batch mode)")
	fmt.Println("  spotify_client_id / spotify_client_secret: Spotify API credentials")
	fmt.Println("  lyrics: true/false (embed lyrics from LRCLIB)")
	return nil
}
