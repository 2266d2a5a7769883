package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/sheetconv/internal/config"
	"github.com/JonMunkholm/sheetconv/internal/core"
	"github.com/JonMunkholm/sheetconv/internal/logging"
	"github.com/JonMunkholm/sheetconv/internal/store"
	"github.com/JonMunkholm/sheetconv/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"convert_max_concurrent", cfg.Convert.MaxConcurrent,
		"preview_rows", cfg.Convert.PreviewRows,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"export_profile", cfg.Convert.ProfilePath,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		slog.Error("failed to open upload store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("connected to upload store", "backend", st.Backend())

	service, err := core.NewService(st, core.ServiceConfig{
		MediaDir:     cfg.Storage.MediaDir,
		DownloadsDir: cfg.Storage.DownloadDir,
		PreviewRows:  cfg.Convert.PreviewRows,
		TableName:    cfg.Convert.DefaultTableName,
		ModelName:    cfg.Convert.DefaultModelName,
		Limiter:      core.NewConvertLimiter(cfg.Convert.MaxConcurrent, cfg.Convert.MaxWaitTime),
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, st, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartDownloadSweeper(jobCtx, core.SweepConfig{
		Retention:     cfg.Storage.DownloadRetention,
		CheckInterval: cfg.Storage.SweepInterval,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Handlers that timed out may have left parse jobs running.
		limiter := service.Limiter()
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for conversions to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("conversions did not complete in time", "error", err)
			} else {
				slog.Info("all conversions completed")
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
