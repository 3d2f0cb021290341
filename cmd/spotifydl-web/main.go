package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"spotifydl/internal/config"
	"spotifydl/internal/logger"
	"spotifydl/internal/metrics"
	"spotifydl/internal/pipeline"
	"spotifydl/internal/shutdown"
	"spotifydl/internal/web"
	"spotifydl/pkg/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port       int
		configPath string
		envFile    string
	)

	cmd := &cobra.Command{
		Use:           "spotifydl-web",
		Short:         "HTTP job server for spotifydl",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{Path: configPath, EnvFile: envFile, Flags: cmd.Flags()})
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return serve(cfg, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "HTTP server port")
	cmd.Flags().StringVar(&configPath, "config", "", "config file path")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file with credentials")
	cmd.Flags().StringP("output", "o", "", "output directory")
	cmd.Flags().StringP("source", "s", "", "default source: auto, youtubemusic, deezer, soundcloud")
	cmd.Flags().BoolP("verbose", "v", false, "log debug output")
	return cmd
}

func serve(cfg config.Config, port int) error {
	l := logger.New(cfg.Verbose)
	logDir := config.GetDefaultLogPath()
	if err := os.MkdirAll(logDir, 0755); err == nil {
		logPath := filepath.Join(logDir, fmt.Sprintf("spotifydl-web-%d.log", time.Now().Unix()))
		if err := l.SetFileLog(logPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to setup file logging: %v\n", err)
		}
	}
	defer l.Close()

	for _, w := range cfg.CredentialWarnings() {
		l.Warn("%s", w)
	}
	if err := utils.CheckDependencies(); err != nil {
		return fmt.Errorf("dependency check failed: %w", err)
	}

	sh := shutdown.New()
	defer sh.Shutdown()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, closeHistory, err := pipeline.Build(sh.Context(), cfg, l, metrics.New(reg))
	if err != nil {
		return err
	}
	sh.AddCleanup(func() {
		if err := closeHistory(); err != nil {
			l.Warn("Failed to close history: %v", err)
		}
	})

	jobMgr := web.NewJobManager()
	jobMgr.StartCleanup(sh.Context())
	server := web.NewServer(sh.Context(), jobMgr, svc, cfg.Source, reg, l)

	// No WriteTimeout: /ws connections stay open for the life of a job.
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("Starting web server on port %d", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-sh.Context().Done():
	}

	l.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		l.Error("Server shutdown error: %v", err)
	}

	l.Info("Server stopped")
	return nil
}
