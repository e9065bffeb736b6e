package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sashakarcz/passify/internal/api"
	"github.com/sashakarcz/passify/internal/archive"
	"github.com/sashakarcz/passify/internal/config"
	"github.com/sashakarcz/passify/internal/events"
	"github.com/sashakarcz/passify/internal/history"
	"github.com/sashakarcz/passify/internal/logger"
	"github.com/sashakarcz/passify/internal/metrics"
	"github.com/sashakarcz/passify/internal/session"
	"github.com/sashakarcz/passify/internal/storage"
)

const banner = `
                      _  __
  _ __   __ _ ___ ___(_)/ _|_   _
 | '_ \ / _' / __/ __| | |_| | | |
 | |_) | (_| \__ \__ \ |  _| |_| |
 | .__/ \__,_|___/___/_|_|  \__, |
 |_|                        |___/

  Password Generator
  Version: 1.0.0
`

var (
	configFile = flag.String("config", "", "Path to configuration file (defaults apply when empty)")
	version    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Print("passify v1.0.0\n")
		os.Exit(0)
	}

	fmt.Print(banner)

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	if err := logger.Setup(logger.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info().
		Str("config", *configFile).
		Str("history_backend", cfg.History.Backend).
		Msg("Starting passify")

	// Create main context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics
	m := metrics.New(prometheus.NewRegistry())
	logger.Info().Msg("Initialized Prometheus metrics")

	// Initialize event broadcaster for the live history view. It gets its own
	// context so streams can end before the HTTP server drains.
	streamCtx, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()

	broadcaster := events.NewBroadcaster()
	broadcaster.Start(streamCtx)

	// Open the history backend
	var (
		store    history.Store
		database *storage.Store
	)

	switch cfg.History.Backend {
	case config.BackendPostgres:
		logger.Info().Msg("Initializing database")
		if err := storage.EnsureDatabase(ctx, cfg.Database.Connection); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize database")
		}

		database, err = storage.New(ctx, storage.Config{
			ConnectionString: cfg.Database.Connection,
			MaxConnections:   cfg.Database.MaxConnections,
			MinConnections:   cfg.Database.MinConnections,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close()

		store = storage.NewHistoryStore(database, cfg.History.MaxEntries)
		logger.Info().Msg("Database connection established")

	default:
		fileStore := history.NewFileStore(cfg.History.File, cfg.History.MaxEntries)
		entries, err := fileStore.Len(ctx)
		if err != nil {
			logger.Warn().Err(err).Str("file", fileStore.Path()).Msg("Failed to read history file")
		}
		m.UpdateHistoryEntries(entries)
		store = fileStore

		logger.Info().
			Str("file", fileStore.Path()).
			Int("entries", entries).
			Int("max_entries", fileStore.MaxEntries()).
			Msg("Using file history")
	}

	// Sessions
	sessions := session.NewManager(session.Config{
		CookieName:   cfg.Session.CookieName,
		TTL:          cfg.Session.TTL,
		MaxSessions:  cfg.Session.MaxSessions,
		SecureCookie: cfg.Session.SecureCookie,
		Defaults:     cfg.DefaultSettings(),
	})

	expiryWorker := session.NewExpiryWorker(sessions, m, cfg.Session.SweepInterval)
	if err := expiryWorker.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start session expiry worker")
	}

	// Create API server
	apiServer := api.New(api.Config{
		Listen:         cfg.Server.Listen,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		HistoryBackend: cfg.History.Backend,
		MetricsEnabled: cfg.MetricsOn(),
		MetricsPath:    cfg.Observability.MetricsPath,
		SecureCookie:   cfg.Session.SecureCookie,
		WebAuth:        &cfg.Observability.WebAuth,
	}, store, sessions, broadcaster, m)

	if database != nil {
		apiServer.SetDatabase(database)
	}

	// Initialize history archive (if enabled)
	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		logger.Info().
			Str("path", cfg.Archive.Path).
			Str("remote", cfg.Archive.Remote).
			Str("branch", cfg.Archive.Branch).
			Msg("Initializing history archive")

		repo := archive.NewRepository(&archive.RepositoryConfig{
			LocalPath:   cfg.Archive.Path,
			Remote:      cfg.Archive.Remote,
			Branch:      cfg.Archive.Branch,
			FileName:    cfg.Archive.FileName,
			AuthorName:  cfg.Archive.AuthorName,
			AuthorEmail: cfg.Archive.AuthorEmail,
			Username:    cfg.Archive.Auth.Username,
			Token:       cfg.Archive.Auth.Token,
		})
		if err := repo.Initialize(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize archive repository")
		}

		archiver = archive.NewArchiver(repo, store, cfg.Archive.Interval, m, broadcaster)
		apiServer.SetArchiver(archiver)

		if err := archiver.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start history archiver")
		}
	} else {
		logger.Info().Msg("History archive disabled")
	}

	if err := apiServer.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start API server")
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info().
		Str("listen", cfg.Server.Listen).
		Msg("passify is running. Press Ctrl+C to stop.")

	<-sigChan
	logger.Info().Msg("Shutdown signal received, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Open activity streams never finish on their own
	stopStreams()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error stopping API server")
	}

	cancel()

	if archiver != nil {
		if err := archiver.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Error stopping history archiver")
		}
	}

	if err := expiryWorker.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error stopping session expiry worker")
	}

	logger.Info().Msg("Server stopped. Goodbye!")
}
