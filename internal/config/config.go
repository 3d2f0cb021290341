package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

// Config contains the program configuration
type Config struct {
	OutputDir           string        `yaml:"output_dir" mapstructure:"output_dir"`
	Format              string        `yaml:"format" mapstructure:"format"`
	Quality             string        `yaml:"quality" mapstructure:"quality"`
	Source              string        `yaml:"source" mapstructure:"source"`
	SpotifyClientID     string        `yaml:"spotify_client_id" mapstructure:"spotify_client_id"`
	SpotifyClientSecret string        `yaml:"spotify_client_secret" mapstructure:"spotify_client_secret"`
	SoundCloudClientID  string        `yaml:"soundcloud_client_id" mapstructure:"soundcloud_client_id"`
	DeezerAPIKey        string        `yaml:"deezer_api_key" mapstructure:"deezer_api_key"`
	Cookies             string        `yaml:"cookies" mapstructure:"cookies"`
	CookiesFromBrowser  string        `yaml:"cookies_from_browser" mapstructure:"cookies_from_browser"`
	Lyrics              bool          `yaml:"lyrics" mapstructure:"lyrics"`
	ParallelJobs        int           `yaml:"parallel_jobs" mapstructure:"parallel_jobs"`
	Timeout             time.Duration `yaml:"timeout" mapstructure:"timeout"`
	HistoryDB           string        `yaml:"history_db" mapstructure:"history_db"`
	Verbose             bool          `yaml:"verbose" mapstructure:"verbose"`
}

// Source names accepted by the source setting.
var Sources = []string{"auto", "youtubemusic", "deezer", "soundcloud"}

var validFormats = []string{"mp3", "m4a", "opus", "flac", "wav", "aac", "vorbis"}

// envKeys maps settings to the environment variables that override them.
var envKeys = map[string]string{
	"spotify_client_id":     "SPOTIFY_CLIENT_ID",
	"spotify_client_secret": "SPOTIFY_CLIENT_SECRET",
	"soundcloud_client_id":  "SOUNDCLOUD_CLIENT_ID",
	"deezer_api_key":        "DEEZER_API_KEY",
}

// FlagKeys maps command line flag names to settings.
var FlagKeys = map[string]string{
	"output":               "output_dir",
	"format":               "format",
	"quality":              "quality",
	"source":               "source",
	"cookies":              "cookies",
	"cookies-from-browser": "cookies_from_browser",
	"lyrics":               "lyrics",
	"jobs":                 "parallel_jobs",
	"timeout":              "timeout",
	"history-db":           "history_db",
	"verbose":              "verbose",
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		OutputDir:    musicDir(),
		Format:       "mp3",
		Quality:      "320k",
		Source:       "youtubemusic",
		ParallelJobs: 4,
		Timeout:      10 * time.Minute,
		HistoryDB:    filepath.Join(xdg.DataHome, "spotifydl", "history.db"),
	}
}

// LoadOptions selects the inputs Load merges.
type LoadOptions struct {
	// Path is the config file; empty searches the standard locations.
	Path string
	// EnvFile is a dotenv file loaded into the environment when present.
	EnvFile string
	// Flags are bound through FlagKeys; only flags set by the user override.
	Flags *pflag.FlagSet
}

// Load merges defaults, the YAML config file, environment variables and
// command line flags, later sources taking precedence.
func Load(opts LoadOptions) (Config, error) {
	if opts.EnvFile != "" {
		if err := gotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	if err := setDefaults(v); err != nil {
		return Config{}, err
	}

	path := opts.Path
	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		settings, err := readConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := v.MergeConfigMap(settings); err != nil {
			return Config{}, fmt.Errorf("failed to merge config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("SPOTIFYDL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, env := range envKeys {
		if err := v.BindEnv(key, env, "SPOTIFYDL_"+strings.ToUpper(key)); err != nil {
			return Config{}, err
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}

	cfg.OutputDir = ExpandHome(cfg.OutputDir)
	cfg.Cookies = ExpandHome(cfg.Cookies)
	cfg.HistoryDB = ExpandHome(cfg.HistoryDB)
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	return cfg, nil
}

func setDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	var defaults map[string]interface{}
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return err
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return nil
}

func readConfigFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	settings := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return settings, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(xdg.Home, path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	locations := []string{
		"./spotifydl.yaml",
		"./spotifydl.yml",
		GetDefaultConfigPath(),
		filepath.Join(xdg.ConfigHome, "spotifydl", "config.yml"),
		filepath.Join(xdg.Home, ".spotifydl.yaml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves the configuration to a YAML file
func SaveConfigFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "spotifydl", "config.yaml")
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(xdg.DataHome, "spotifydl", "logs")
}

func musicDir() string {
	if xdg.UserDirs.Music != "" {
		return xdg.UserDirs.Music
	}
	return filepath.Join(xdg.Home, "Music")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}

	if !contains(validFormats, c.Format) {
		return fmt.Errorf("unsupported audio format '%s', valid formats: %v", c.Format, validFormats)
	}
	if strings.TrimSpace(c.Quality) == "" {
		return fmt.Errorf("quality cannot be empty")
	}

	if !contains(Sources, c.Source) {
		return fmt.Errorf("unknown source %q, valid sources: %s", c.Source, strings.Join(Sources, ", "))
	}

	if c.ParallelJobs < 1 {
		return fmt.Errorf("parallel jobs must be at least 1, got %d", c.ParallelJobs)
	}
	if c.ParallelJobs > 10 {
		return fmt.Errorf("parallel jobs cannot exceed 10 (to avoid rate limiting), got %d", c.ParallelJobs)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %s", c.Timeout)
	}

	if c.SpotifyClientID == "" || c.SpotifyClientSecret == "" {
		return fmt.Errorf("spotify API credentials not found: set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	}

	return nil
}

// CredentialWarnings lists missing optional credentials for the providers
// the configured source will use.
func (c *Config) CredentialWarnings() []string {
	var warnings []string
	if (c.Source == "deezer" || c.Source == "auto") && c.DeezerAPIKey == "" {
		warnings = append(warnings, "DEEZER_API_KEY not set, using the public Deezer API")
	}
	if (c.Source == "soundcloud" || c.Source == "auto") && c.SoundCloudClientID == "" {
		warnings = append(warnings, "SOUNDCLOUD_CLIENT_ID not set, soundcloud will try to discover one")
	}
	return warnings
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
