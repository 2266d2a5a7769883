// Package store persists uploaded file records.
//
// Two backends implement core.UploadStore: PostgreSQL through a pgx pool and
// SQLite through the pure-Go modernc.org/sqlite driver. Open picks one from
// the DATABASE_URL scheme.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetconv/internal/core"
)

// Store is an UploadStore backed by a database connection.
type Store interface {
	core.UploadStore
	Ping(ctx context.Context) error
	Backend() string
	Close()
}

// Config holds connection settings. Pool sizes apply to PostgreSQL only.
type Config struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// IsPostgres reports whether url selects the PostgreSQL backend.
func IsPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Open connects to the backend selected by cfg.URL and creates the schema
// if needed. Anything that is not a postgres:// URL is an SQLite DSN.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if IsPostgres(cfg.URL) {
		return OpenPostgres(ctx, cfg)
	}
	return OpenSQLite(ctx, strings.TrimPrefix(cfg.URL, "sqlite://"))
}
