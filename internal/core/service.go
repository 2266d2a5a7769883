package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// UploadStore persists UploadedFile records.
// Implementations return an error wrapping ErrFileNotFound for unknown ids.
type UploadStore interface {
	CreateUpload(ctx context.Context, f UploadedFile) (UploadedFile, error)
	GetUpload(ctx context.Context, id int64) (UploadedFile, error)
	SetSheetName(ctx context.Context, id int64, sheet string) error
	RecentUploads(ctx context.Context, limit int) ([]UploadedFile, error)
}

// ServiceConfig holds the directories and defaults of a Service.
type ServiceConfig struct {
	MediaDir     string // uploaded files are stored under MediaDir/uploads
	DownloadsDir string // generated scripts
	PreviewRows  int
	TableName    string
	ModelName    string
	Limiter      *ConvertLimiter
}

// Service ties the upload store, parser, validator and generator together.
// Web handlers and the CLI both go through it.
type Service struct {
	store        UploadStore
	uploadsDir   string
	downloadsDir string
	previewRows  int
	tableName    string
	modelName    string
	limiter      *ConvertLimiter
}

// DefaultPreviewRows is the number of rows shown on the preview page.
const DefaultPreviewRows = 50

// NewService creates the upload and download directories and returns a
// ready Service.
func NewService(store UploadStore, cfg ServiceConfig) (*Service, error) {
	if store == nil {
		return nil, errors.New("upload store is required")
	}
	if cfg.MediaDir == "" || cfg.DownloadsDir == "" {
		return nil, errors.New("media and downloads directories are required")
	}

	uploadsDir := filepath.Join(cfg.MediaDir, "uploads")
	for _, dir := range []string{uploadsDir, cfg.DownloadsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}
	if cfg.TableName == "" {
		cfg.TableName = DefaultTableName
	}
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModelName
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewConvertLimiter(0, 0)
	}

	return &Service{
		store:        store,
		uploadsDir:   uploadsDir,
		downloadsDir: cfg.DownloadsDir,
		previewRows:  cfg.PreviewRows,
		tableName:    cfg.TableName,
		modelName:    cfg.ModelName,
		limiter:      cfg.Limiter,
	}, nil
}

// Limiter exposes the conversion limiter for shutdown draining and status.
func (s *Service) Limiter() *ConvertLimiter { return s.limiter }

// DefaultNames returns the table and model names used when a request
// leaves them blank.
func (s *Service) DefaultNames() (table, model string) { return s.tableName, s.modelName }

// SaveUpload stores the file under a unique name and records it.
// It returns the record and the workbook's sheet names (empty for CSV).
func (s *Service) SaveUpload(ctx context.Context, name string, r io.Reader) (*UploadedFile, []string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, nil, errors.New("no file provided")
	}
	if DetectKind(name) == KindUnsupported {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}

	path := filepath.Join(s.uploadsDir, storedName(name))
	n, err := writeFile(path, r)
	if err != nil {
		return nil, nil, err
	}
	if n == 0 {
		os.Remove(path)
		return nil, nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}

	var sheets []string
	err = s.limiter.Do(ctx, func() error {
		var err error
		sheets, err = SheetNames(path)
		return err
	})
	if err != nil {
		os.Remove(path)
		return nil, nil, err
	}

	rec, err := s.store.CreateUpload(ctx, UploadedFile{FilePath: path, OriginalName: name})
	if err != nil {
		os.Remove(path)
		return nil, nil, fmt.Errorf("record upload: %w", err)
	}

	slog.InfoContext(ctx, "file uploaded",
		"id", rec.ID,
		"name", name,
		"sheets", len(sheets),
		"client_ip", ClientIPFromContext(ctx),
	)
	return &rec, sheets, nil
}

// Get returns the record for id.
func (s *Service) Get(ctx context.Context, id int64) (*UploadedFile, error) {
	rec, err := s.store.GetUpload(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Recent returns the most recent uploads, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]UploadedFile, error) {
	return s.store.RecentUploads(ctx, limit)
}

// Sheets lists the sheet names of an uploaded file.
func (s *Service) Sheets(ctx context.Context, id int64) (*UploadedFile, []string, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	sheets, err := SheetNames(rec.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return rec, sheets, nil
}

// SelectSheet remembers the chosen sheet on the record.
func (s *Service) SelectSheet(ctx context.Context, id int64, sheet string) error {
	_, sheets, err := s.Sheets(ctx, id)
	if err != nil {
		return err
	}
	if !contains(sheets, sheet) {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	return s.store.SetSheetName(ctx, id, sheet)
}

// PreviewResult is the first rows of a sheet with its column types.
type PreviewResult struct {
	File      *UploadedFile
	Sheets    []string
	Sheet     string
	Columns   []string
	Rows      []Row
	Types     ColumnTypeMap
	TotalRows int
}

// Records returns the preview rows for display.
func (p *PreviewResult) Records() []Record {
	return (&Table{Columns: p.Columns, Rows: p.Rows}).Records()
}

// Preview parses the file and returns its first rows. An empty sheet falls
// back to the remembered sheet, then to the first sheet. The sheet used is
// remembered on the record.
func (s *Service) Preview(ctx context.Context, id int64, sheet string, trim bool) (*PreviewResult, error) {
	rec, sheets, err := s.Sheets(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case len(sheets) == 0:
		sheet = ""
	case sheet == "" && rec.SheetName != "":
		sheet = rec.SheetName
	case sheet == "":
		sheet = sheets[0]
	}

	t, err := s.parse(ctx, rec.FilePath, ParseOptions{Sheet: sheet, Trim: trim})
	if err != nil {
		return nil, err
	}

	if sheet != "" && sheet != rec.SheetName {
		if err := s.store.SetSheetName(ctx, id, sheet); err != nil {
			return nil, fmt.Errorf("remember sheet: %w", err)
		}
		rec.SheetName = sheet
	}

	head := t.Head(s.previewRows)
	return &PreviewResult{
		File:      rec,
		Sheets:    sheets,
		Sheet:     sheet,
		Columns:   t.Columns,
		Rows:      head.Rows,
		Types:     InferColumnTypes(t),
		TotalRows: len(t.Rows),
	}, nil
}

// Validate runs the validator over the remembered sheet.
func (s *Service) Validate(ctx context.Context, id int64, required, unique []string, trim bool) (*ValidationResult, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.parse(ctx, rec.FilePath, ParseOptions{Sheet: rec.SheetName, Trim: trim})
	if err != nil {
		return nil, err
	}
	return Validate(t, required, unique)
}

// GenerateResult is a generated script and where it was written.
type GenerateResult struct {
	Format   Format
	Script   string
	FileName string
	Path     string
}

// Generate renders the remembered sheet (trimmed) as a script and writes it
// to migration_output_<id>.<format> in the downloads directory. Re-running
// replaces the file.
func (s *Service) Generate(ctx context.Context, id int64, format Format, opts GenerateOptions) (*GenerateResult, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.parse(ctx, rec.FilePath, ParseOptions{Sheet: rec.SheetName, Trim: true})
	if err != nil {
		return nil, err
	}

	if opts.TableName == "" {
		opts.TableName = s.tableName
	}
	if opts.ModelName == "" {
		opts.ModelName = s.modelName
	}
	script, err := Generate(format, t, opts)
	if err != nil {
		return nil, err
	}

	name := OutputFileName(id, format)
	path := filepath.Join(s.downloadsDir, name)
	if err := writeFileAtomic(path, []byte(script)); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "script generated", "id", id, "format", format, "rows", len(t.Rows), "file", name)
	return &GenerateResult{Format: format, Script: script, FileName: name, Path: path}, nil
}

// OutputFileName is the download name for a generated script.
func OutputFileName(id int64, format Format) string {
	return fmt.Sprintf("migration_output_%d.%s", id, format.Ext())
}

// outputName matches the names produced by OutputFileName.
var outputName = regexp.MustCompile(`^migration_output_[0-9]+\.(sql|orm|json)$`)

// DownloadPath resolves a generated file name inside the downloads
// directory. Only names produced by OutputFileName are served.
func (s *Service) DownloadPath(name string) (string, error) {
	if !outputName.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrFileNotFound, name)
	}
	path := filepath.Join(s.downloadsDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %q", ErrFileNotFound, name)
	}
	return path, nil
}

func (s *Service) parse(ctx context.Context, path string, opts ParseOptions) (*Table, error) {
	var t *Table
	err := s.limiter.Do(ctx, func() error {
		var err error
		t, err = ParseFile(path, opts)
		return err
	})
	return t, err
}

// storedSuffix matches the random suffix added by storedName.
var storedSuffix = regexp.MustCompile(`_[0-9a-f]{8}$`)

// storedName appends a short random suffix so uploads never collide.
func storedName(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return stem + "_" + uuid.NewString()[:8] + ext
}

// DisplayName returns the file name of a stored upload without its random
// suffix.
func DisplayName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return storedSuffix.ReplaceAllString(stem, "") + ext
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("store upload: %w", err)
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("store upload: %w", err)
	}
	return n, nil
}

// writeFileAtomic writes to a temp file in the same directory and renames
// it over path, so readers never see a partial script.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
