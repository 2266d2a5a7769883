package core

// scheduler.go runs background maintenance for the downloads directory.
//
// Generated scripts are kept for a retention period and then removed. The
// sweeper runs once on start and then on every tick until the context is
// cancelled. Failures are logged and never stop the application.

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SweepConfig holds configuration for the downloads sweeper.
type SweepConfig struct {
	Retention     time.Duration // Age after which generated files are removed; 0 disables
	CheckInterval time.Duration // How often to run (default: 1h)
}

// StartDownloadSweeper blocks, periodically removing generated files older
// than cfg.Retention. Run it in its own goroutine.
func (s *Service) StartDownloadSweeper(ctx context.Context, cfg SweepConfig) {
	if cfg.Retention <= 0 {
		slog.Info("download sweeper disabled")
		return
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Hour
	}

	slog.Info("download sweeper started",
		"retention", cfg.Retention.String(),
		"interval", cfg.CheckInterval.String(),
	)

	s.runSweep(ctx, cfg.Retention)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("download sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep(ctx, cfg.Retention)
		}
	}
}

func (s *Service) runSweep(ctx context.Context, retention time.Duration) {
	start := time.Now()
	removed, err := s.SweepDownloads(ctx, time.Now().Add(-retention))
	if err != nil {
		slog.Error("download sweep failed", "error", err)
		return
	}
	slog.Info("download sweep completed",
		"files_removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// SweepDownloads removes generated scripts last modified before cutoff.
// Leftover temp files from interrupted writes are removed too.
func (s *Service) SweepDownloads(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.downloadsDir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "migration_output_") && !strings.HasPrefix(name, ".migration_output_") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.downloadsDir, name)); err != nil {
			slog.Warn("remove generated file", "file", name, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
