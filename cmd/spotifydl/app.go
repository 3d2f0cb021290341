package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spotifydl/internal/config"
	"spotifydl/internal/logger"
	"spotifydl/internal/pipeline"
	"spotifydl/internal/shutdown"
	"spotifydl/pkg/utils"
)

// app holds what a download command needs once configuration is loaded.
type app struct {
	cfg config.Config
	log *logger.Logger
	sh  *shutdown.Handler
	svc *pipeline.Service
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		Path:    cfgFile,
		EnvFile: envFile,
		Flags:   cmd.Flags(),
	})
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	warn := color.New(color.FgYellow)
	for _, w := range cfg.CredentialWarnings() {
		warn.Fprintf(os.Stderr, "[WARN] %s\n", w)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	log := logger.New(cfg.Verbose)
	if !cfg.Verbose {
		setupFileLog(log)
	}

	log.Debug("Checking dependencies...")
	if err := utils.CheckDependencies(); err != nil {
		log.Close()
		return nil, fmt.Errorf("dependency check failed: %w", err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	sh := shutdown.New()
	svc, closeHistory, err := pipeline.Build(sh.Context(), cfg, log, nil)
	if err != nil {
		sh.Shutdown()
		log.Close()
		return nil, err
	}

	sh.AddCleanup(func() { log.Close() })
	sh.AddCleanup(func() {
		if err := closeHistory(); err != nil {
			log.Warn("Failed to close history: %v", err)
		}
	})

	return &app{cfg: cfg, log: log, sh: sh, svc: svc}, nil
}

func (a *app) close() {
	if a.sh.Context().Err() != nil {
		a.log.Warn("Interrupted")
	}
	a.sh.Shutdown()
}

func setupFileLog(log *logger.Logger) {
	logDir := config.GetDefaultLogPath()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to create log directory: %v\n", err)
		return
	}
	logFile := filepath.Join(logDir, fmt.Sprintf("spotifydl_%s.log", time.Now().Format("2006-01-02_15-04-05")))
	if err := log.SetFileLog(logFile); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to setup file logging: %v\n", err)
		return
	}
	log.Debug("Logging to file: %s", logFile)
}
