package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/sheetconv/internal/core"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS uploaded_files (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path     TEXT NOT NULL,
	original_name TEXT NOT NULL,
	sheet_name    TEXT NOT NULL DEFAULT '',
	uploaded_at   INTEGER NOT NULL
)`

// SQLite stores upload records in a local SQLite database.
// uploaded_at is kept as Unix microseconds.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if dsn == "" {
		return nil, errors.New("sqlite: empty DSN")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; also keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Backend names the store for health output.
func (s *SQLite) Backend() string { return "sqlite" }

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *SQLite) Close() { s.db.Close() }

// CreateUpload inserts a record and returns it with its ID and upload time.
func (s *SQLite) CreateUpload(ctx context.Context, f core.UploadedFile) (core.UploadedFile, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO uploaded_files (file_path, original_name, sheet_name, uploaded_at)
		 VALUES (?, ?, ?, ?)`,
		f.FilePath, f.OriginalName, f.SheetName, now.UnixMicro(),
	)
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("insert upload: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("insert upload: %w", err)
	}
	f.ID = id
	f.UploadedAt = now
	return f, nil
}

// GetUpload returns the record for id, or core.ErrFileNotFound.
func (s *SQLite) GetUpload(ctx context.Context, id int64) (core.UploadedFile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_path, original_name, sheet_name, uploaded_at
		 FROM uploaded_files WHERE id = ?`, id)
	f, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UploadedFile{}, fmt.Errorf("upload %d: %w", id, core.ErrFileNotFound)
	}
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("get upload %d: %w", id, err)
	}
	return f, nil
}

// SetSheetName remembers the selected sheet for id.
func (s *SQLite) SetSheetName(ctx context.Context, id int64, sheet string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE uploaded_files SET sheet_name = ? WHERE id = ?`, sheet, id)
	if err != nil {
		return fmt.Errorf("update upload %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update upload %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("upload %d: %w", id, core.ErrFileNotFound)
	}
	return nil
}

// RecentUploads returns up to limit records, newest first.
func (s *SQLite) RecentUploads(ctx context.Context, limit int) ([]core.UploadedFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_path, original_name, sheet_name, uploaded_at
		 FROM uploaded_files ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var out []core.UploadedFile
	for rows.Next() {
		f, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("list uploads: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(row scanner) (core.UploadedFile, error) {
	var (
		f      core.UploadedFile
		micros int64
	)
	if err := row.Scan(&f.ID, &f.FilePath, &f.OriginalName, &f.SheetName, &micros); err != nil {
		return core.UploadedFile{}, err
	}
	f.UploadedAt = time.UnixMicro(micros).UTC()
	return f, nil
}
