package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/sheetconv/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS uploaded_files (
	id            BIGSERIAL PRIMARY KEY,
	file_path     TEXT NOT NULL,
	original_name TEXT NOT NULL,
	sheet_name    TEXT NOT NULL DEFAULT '',
	uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores upload records in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a connection pool, verifies it and applies the schema.
func OpenPostgres(ctx context.Context, cfg Config) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Backend names the store for health output.
func (p *Postgres) Backend() string { return "postgres" }

// Ping checks that the pool can reach the server.
func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

// Close closes every pooled connection.
func (p *Postgres) Close() { p.pool.Close() }

// CreateUpload inserts a record; the server assigns ID and upload time.
func (p *Postgres) CreateUpload(ctx context.Context, f core.UploadedFile) (core.UploadedFile, error) {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO uploaded_files (file_path, original_name, sheet_name)
		 VALUES ($1, $2, $3)
		 RETURNING id, uploaded_at`,
		f.FilePath, f.OriginalName, f.SheetName,
	).Scan(&f.ID, &f.UploadedAt)
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("insert upload: %w", err)
	}
	return f, nil
}

// GetUpload returns the record for id, or core.ErrFileNotFound.
func (p *Postgres) GetUpload(ctx context.Context, id int64) (core.UploadedFile, error) {
	var f core.UploadedFile
	err := p.pool.QueryRow(ctx,
		`SELECT id, file_path, original_name, sheet_name, uploaded_at
		 FROM uploaded_files WHERE id = $1`, id,
	).Scan(&f.ID, &f.FilePath, &f.OriginalName, &f.SheetName, &f.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.UploadedFile{}, fmt.Errorf("upload %d: %w", id, core.ErrFileNotFound)
	}
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("get upload %d: %w", id, err)
	}
	return f, nil
}

// SetSheetName remembers the selected sheet for id.
func (p *Postgres) SetSheetName(ctx context.Context, id int64, sheet string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE uploaded_files SET sheet_name = $1 WHERE id = $2`, sheet, id)
	if err != nil {
		return fmt.Errorf("update upload %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("upload %d: %w", id, core.ErrFileNotFound)
	}
	return nil
}

// RecentUploads returns up to limit records, newest first.
func (p *Postgres) RecentUploads(ctx context.Context, limit int) ([]core.UploadedFile, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, file_path, original_name, sheet_name, uploaded_at
		 FROM uploaded_files ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.UploadedFile, error) {
		var f core.UploadedFile
		err := row.Scan(&f.ID, &f.FilePath, &f.OriginalName, &f.SheetName, &f.UploadedAt)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return out, nil
}
