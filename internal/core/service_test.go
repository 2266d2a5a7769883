package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory UploadStore for service tests.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]UploadedFile
}

func newMemStore() *memStore {
	return &memStore{records: make(map[int64]UploadedFile)}
}

func (m *memStore) CreateUpload(_ context.Context, f UploadedFile) (UploadedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	f.ID = m.nextID
	f.UploadedAt = time.Now()
	m.records[f.ID] = f
	return f, nil
}

func (m *memStore) GetUpload(_ context.Context, id int64) (UploadedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.records[id]
	if !ok {
		return UploadedFile{}, fmt.Errorf("upload %d: %w", id, ErrFileNotFound)
	}
	return f, nil
}

func (m *memStore) SetSheetName(_ context.Context, id int64, sheet string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.records[id]
	if !ok {
		return fmt.Errorf("upload %d: %w", id, ErrFileNotFound)
	}
	f.SheetName = sheet
	m.records[id] = f
	return nil
}

func (m *memStore) RecentUploads(_ context.Context, limit int) ([]UploadedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []UploadedFile
	for id := m.nextID; id > 0 && len(out) < limit; id-- {
		if f, ok := m.records[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func newTestService(t *testing.T, previewRows int) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	dir := t.TempDir()
	svc, err := NewService(store, ServiceConfig{
		MediaDir:     filepath.Join(dir, "media"),
		DownloadsDir: filepath.Join(dir, "downloads"),
		PreviewRows:  previewRows,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func uploadCSV(t *testing.T, svc *Service, name, content string) *UploadedFile {
	t.Helper()
	rec, sheets, err := svc.SaveUpload(context.Background(), name, strings.NewReader(content))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if len(sheets) != 0 {
		t.Fatalf("csv sheets = %q, want none", sheets)
	}
	return rec
}

func TestService_SaveUpload(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()

	rec := uploadCSV(t, svc, "people.csv", "id,name\n1,Ann\n")
	if rec.ID == 0 {
		t.Error("record should have an id")
	}
	if rec.OriginalName != "people.csv" {
		t.Errorf("OriginalName = %q", rec.OriginalName)
	}
	if filepath.Base(rec.FilePath) == "people.csv" {
		t.Error("stored file name should carry a random suffix")
	}
	if got := DisplayName(rec.FilePath); got != "people.csv" {
		t.Errorf("DisplayName = %q, want people.csv", got)
	}
	if _, err := os.Stat(rec.FilePath); err != nil {
		t.Errorf("stored file missing: %v", err)
	}

	t.Run("second upload does not collide", func(t *testing.T) {
		again := uploadCSV(t, svc, "people.csv", "id\n2\n")
		if again.FilePath == rec.FilePath {
			t.Error("uploads with the same name share a path")
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, _, err := svc.SaveUpload(ctx, "legacy.xls", strings.NewReader("x"))
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("err = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("no file name", func(t *testing.T) {
		_, _, err := svc.SaveUpload(ctx, "", strings.NewReader("x"))
		if err == nil || MapError(err).Code != "FILE004" {
			t.Errorf("err = %v, want FILE004", err)
		}
	})

	t.Run("empty upload", func(t *testing.T) {
		_, _, err := svc.SaveUpload(ctx, "empty.csv", strings.NewReader(""))
		if !errors.Is(err, ErrEmptyFile) {
			t.Errorf("err = %v, want ErrEmptyFile", err)
		}
	})

	t.Run("broken workbook is removed", func(t *testing.T) {
		_, _, err := svc.SaveUpload(ctx, "broken.xlsx", strings.NewReader("not a zip"))
		if err == nil {
			t.Fatal("expected error for broken workbook")
		}
		entries, _ := os.ReadDir(filepath.Dir(rec.FilePath))
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "broken") {
				t.Errorf("broken upload left behind: %s", e.Name())
			}
		}
	})
}

func TestService_Get_NotFound(t *testing.T) {
	svc, _ := newTestService(t, 0)
	if _, err := svc.Get(context.Background(), 99); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("err = %v, want ErrFileNotFound", err)
	}
}

func TestService_SheetFlow(t *testing.T) {
	svc, store := newTestService(t, 0)
	ctx := context.Background()

	path := writeXLSX(t, map[string][][]string{
		"First":  {{"a"}, {"1"}},
		"Second": {{"b", "c"}, {"x", "y"}, {"z", "w"}},
	}, "First", "Second")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	rec, sheets, err := svc.SaveUpload(ctx, "book.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if len(sheets) != 2 {
		t.Fatalf("sheets = %q, want 2", sheets)
	}

	if err := svc.SelectSheet(ctx, rec.ID, "Nope"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("SelectSheet(Nope) err = %v, want ErrSheetNotFound", err)
	}

	if err := svc.SelectSheet(ctx, rec.ID, "Second"); err != nil {
		t.Fatalf("SelectSheet: %v", err)
	}

	p, err := svc.Preview(ctx, rec.ID, "", false)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if p.Sheet != "Second" || len(p.Columns) != 2 {
		t.Errorf("preview used sheet %q with columns %q", p.Sheet, p.Columns)
	}

	// An explicit sheet overrides and is remembered.
	if _, err := svc.Preview(ctx, rec.ID, "First", false); err != nil {
		t.Fatalf("Preview(First): %v", err)
	}
	saved, _ := store.GetUpload(ctx, rec.ID)
	if saved.SheetName != "First" {
		t.Errorf("remembered sheet = %q, want First", saved.SheetName)
	}

	res, err := svc.Validate(ctx, rec.ID, []string{"a"}, nil, false)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Columns[0] != "a" {
		t.Errorf("validate used columns %q, want the remembered sheet", res.Columns)
	}
}

func TestService_Preview(t *testing.T) {
	svc, store := newTestService(t, 2)
	ctx := context.Background()
	rec := uploadCSV(t, svc, "nums.csv", " n \n 1 \n2\n3\n")

	p, err := svc.Preview(ctx, rec.ID, "ignored", true)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(p.Rows) != 2 || p.TotalRows != 3 {
		t.Errorf("rows = %d of %d, want 2 of 3", len(p.Rows), p.TotalRows)
	}
	if p.Columns[0] != "n" || p.Rows[0][0].Value != "1" {
		t.Errorf("trim not applied: columns %q first %q", p.Columns, p.Rows[0][0].Value)
	}
	if p.Types["n"] != TypeInt {
		t.Errorf("type = %q, want int", p.Types["n"])
	}
	if p.Sheet != "" {
		t.Errorf("csv preview sheet = %q, want empty", p.Sheet)
	}
	saved, _ := store.GetUpload(ctx, rec.ID)
	if saved.SheetName != "" {
		t.Errorf("csv record sheet = %q, want empty", saved.SheetName)
	}
}

func TestService_Generate_Overwrites(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()
	rec := uploadCSV(t, svc, "people.csv", "id,name\n1,O'Brien\n")

	first, err := svc.Generate(ctx, rec.ID, FormatSQL, GenerateOptions{TableName: "a"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := svc.Generate(ctx, rec.ID, FormatSQL, GenerateOptions{TableName: "b"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	wantName := fmt.Sprintf("migration_output_%d.sql", rec.ID)
	if first.FileName != wantName || second.FileName != wantName {
		t.Errorf("file names = %q, %q, want %q", first.FileName, second.FileName, wantName)
	}

	data, err := os.ReadFile(second.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "INSERT INTO b VALUES ('1', 'O''Brien');" {
		t.Errorf("output = %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(second.Path))
	if len(entries) != 1 {
		t.Errorf("downloads dir has %d entries, want 1 (no temp files)", len(entries))
	}

	path, err := svc.DownloadPath(wantName)
	if err != nil || path != second.Path {
		t.Errorf("DownloadPath = (%q, %v), want %q", path, err, second.Path)
	}
}

func TestService_Generate_DefaultNames(t *testing.T) {
	store := newMemStore()
	dir := t.TempDir()
	svc, err := NewService(store, ServiceConfig{
		MediaDir:     filepath.Join(dir, "media"),
		DownloadsDir: filepath.Join(dir, "downloads"),
		ModelName:    "Customer",
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	rec := uploadCSV(t, svc, "c.csv", "id\n 7 \n")

	res, err := svc.Generate(context.Background(), rec.ID, FormatORM, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Script != "Customer.objects.create(id='7')" {
		t.Errorf("script = %q", res.Script)
	}
}

func TestService_DownloadPath_Rejects(t *testing.T) {
	svc, _ := newTestService(t, 0)

	// Leftovers in the downloads dir that are not generated outputs.
	for _, name := range []string{".migration_output_1.sql.123456", "keep.txt", "migration_output_1.txt"} {
		if err := os.WriteFile(filepath.Join(svc.downloadsDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	names := []string{
		"", ".", "..", "../secret", "a/b.sql", `..\x.sql`, "missing.sql",
		"migration_output_9.sql",
		".migration_output_1.sql.123456", "keep.txt", "migration_output_1.txt",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.DownloadPath(name); !errors.Is(err, ErrFileNotFound) {
				t.Errorf("DownloadPath(%q) err = %v, want ErrFileNotFound", name, err)
			}
		})
	}
}

func TestService_SweepDownloads(t *testing.T) {
	svc, _ := newTestService(t, 0)
	dir := svc.downloadsDir

	old := filepath.Join(dir, "migration_output_1.sql")
	fresh := filepath.Join(dir, "migration_output_2.sql")
	other := filepath.Join(dir, "keep.txt")
	for _, p := range []string{old, fresh, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	for _, p := range []string{old, other} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := svc.SweepDownloads(context.Background(), time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("SweepDownloads: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old output should be removed")
	}
	for _, p := range []string{fresh, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should be kept: %v", filepath.Base(p), err)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/media/uploads/report_1a2b3c4d.xlsx", "report.xlsx"},
		{"report_final_deadbeef.csv", "report_final.csv"},
		{"plain.csv", "plain.csv"},
		{"notasuffix_XYZ.csv", "notasuffix_XYZ.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DisplayName(tt.path); got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
