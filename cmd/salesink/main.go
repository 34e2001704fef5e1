package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"salesink/internal/config"
	"salesink/internal/db"
	"salesink/internal/ingest"
	"salesink/internal/loader"
	"salesink/internal/logging"
	"salesink/internal/schema"
	"salesink/internal/sniff"
	"salesink/internal/watch"
	"salesink/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	closer, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Dir)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	slog.Info("configuration loaded",
		"watch_dir", cfg.Watch.Dir,
		"quiet_period", cfg.Watch.QuietPeriod,
		"http_enabled", cfg.Server.Enabled,
	)

	// Build the destination connection list. A connections file wins;
	// otherwise a single connection comes from DATABASE_URL.
	var conns []db.ConnectionConfig
	if cfg.Database.ConnectionsFile != "" {
		conns, err = db.LoadConnections(cfg.Database.ConnectionsFile)
		if err != nil {
			slog.Error("failed to load connections", "error", err)
			os.Exit(1)
		}
	} else {
		conn, err := db.FromURL(schema.DefaultConnection, cfg.Database.URL)
		if err != nil {
			slog.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}
		conns = []db.ConnectionConfig{conn}
	}
	slog.Info("destinations configured", "connections", len(conns))

	coord := loader.NewCoordinator(db.RetryPolicy{
		MaxAttempts: cfg.Database.ConnectAttempts,
		Delay:       cfg.Database.ConnectDelay,
	})

	ingestor := &ingest.Ingestor{
		SchemaPath:  cfg.Registry.SchemaFile,
		Connections: conns,
		Sniff: sniff.Options{
			LockPoll:    cfg.Sniff.LockPoll,
			LockMaxWait: cfg.Sniff.LockMaxWait,
			Settle:      cfg.Sniff.Settle,
		},
		Coord: coord,
	}

	driver := &watch.Driver{
		Dir:          cfg.Watch.Dir,
		ProcessedDir: cfg.Watch.ProcessedDir,
		FailedDir:    cfg.Watch.FailedDir,
		Quiet:        cfg.Watch.QuietPeriod,
		Process:      ingestor.ProcessFile,
	}

	ctx, cancel := context.WithCancel(context.Background())

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- driver.Run(ctx)
	}()

	var server *web.Server
	serverDone := make(chan error, 1)
	if cfg.Server.Enabled {
		server = web.NewServer(ingestor, cfg.Server.Addr())
		slog.Info("server starting", "addr", cfg.Server.Addr())
		go func() {
			serverDone <- server.Start()
		}()
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	watchExited := false
	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-watchDone:
		watchExited = true
		if err != nil {
			slog.Error("watcher stopped", "error", err)
		}
	case err := <-serverDone:
		if err != nil {
			slog.Error("server stopped", "error", err)
		}
	}

	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}

	// Wait for in-flight file handlers to finish.
	if !watchExited {
		select {
		case <-watchDone:
		case <-shutdownCtx.Done():
			slog.Warn("in-flight loads did not finish in time")
		}
	}
}
