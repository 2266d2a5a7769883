package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetconv/internal/core"
	"github.com/JonMunkholm/sheetconv/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

const (
	// recentUploadsLimit is the number of uploads listed on the upload page.
	recentUploadsLimit = 10

	// multipartMemory is the part of an upload kept in memory; the rest
	// spills to temp files.
	multipartMemory = 32 << 20
)

// handleUploadPage renders the upload form with the recent uploads.
func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var recent []templates.RecentUpload
	uploads, err := s.service.Recent(ctx, recentUploadsLimit)
	if err != nil {
		// Still show the form
		s.logger(r).Warn("list recent uploads", "error", err)
	}
	for _, u := range uploads {
		recent = append(recent, templates.RecentUpload{
			ID:         u.ID,
			Name:       u.OriginalName,
			SheetName:  u.SheetName,
			UploadedAt: u.UploadedAt,
		})
	}

	renderHTML(w, r, templates.UploadPage(recent, s.cfg.Convert.MaxFileSize>>20))
}

// uploadResponse is the JSON answer to an upload: either a sheet chooser to
// show or the preview to go to.
type uploadResponse struct {
	ShowModal   bool   `json:"show_modal,omitempty"`
	ModalHTML   string `json:"modal_html,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	FileID      int64  `json:"file_id"`
}

// handleUpload stores a multipart upload and answers with JSON.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Convert.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.respondJSONError(w, r, fmt.Errorf("file too large: limit is %d bytes: %w", maxSize, err))
			return
		}
		s.respondJSONError(w, r, fmt.Errorf("no file provided: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondJSONError(w, r, fmt.Errorf("no file provided: %w", err))
		return
	}
	defer file.Close()

	ctx := withClientIP(r.Context(), r)
	rec, sheets, err := s.service.SaveUpload(ctx, header.Filename, file)
	if err != nil {
		s.respondJSONError(w, r, err)
		return
	}

	resp := uploadResponse{FileID: rec.ID}
	switch len(sheets) {
	case 0:
		resp.RedirectURL = previewURL(rec.ID, "")
	case 1:
		resp.RedirectURL = previewURL(rec.ID, sheets[0])
	default:
		var buf bytes.Buffer
		data := templates.SheetData{
			FileID:   rec.ID,
			BaseName: core.DisplayName(rec.FilePath),
			Sheets:   sheets,
		}
		if err := templates.SheetModal(data).Render(ctx, &buf); err != nil {
			s.respondJSONError(w, r, err)
			return
		}
		resp.ShowModal = true
		resp.ModalHTML = buf.String()
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSelectSheetPage renders the sheet chooser, as a fragment when
// ?modal=true.
func (s *Server) handleSelectSheetPage(w http.ResponseWriter, r *http.Request) {
	id, err := fileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rec, sheets, err := s.service.Sheets(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data := templates.SheetData{
		FileID:   rec.ID,
		BaseName: core.DisplayName(rec.FilePath),
		Sheets:   sheets,
		Selected: rec.SheetName,
	}
	if r.URL.Query().Get("modal") == "true" {
		renderHTML(w, r, templates.SheetModal(data))
		return
	}
	renderHTML(w, r, templates.SheetPage(data))
}

// handleSelectSheet remembers the chosen sheet and redirects to its preview.
func (s *Server) handleSelectSheet(w http.ResponseWriter, r *http.Request) {
	id, err := fileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sheet := r.PostFormValue("sheet_name")
	if sheet == "" {
		s.respondError(w, r, fmt.Errorf("%w: no sheet selected", core.ErrSheetNotFound))
		return
	}

	if err := s.service.SelectSheet(r.Context(), id, sheet); err != nil {
		s.respondError(w, r, err)
		return
	}

	http.Redirect(w, r, previewURL(id, sheet), http.StatusSeeOther)
}

// handlePreview shows the first rows of the selected sheet.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, err := fileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	trim := q.Get("trim") == "on"

	p, err := s.service.Preview(withClientIP(r.Context(), r), id, q.Get("sheet"), trim)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"file_id":     id,
			"name":        p.File.OriginalName,
			"sheets":      p.Sheets,
			"sheet":       p.Sheet,
			"columns":     p.Columns,
			"columnTypes": p.Types,
			"rows":        p.Records(),
			"totalRows":   p.TotalRows,
		})
		return
	}

	table, model := s.service.DefaultNames()
	renderHTML(w, r, templates.PreviewPage(templates.PreviewData{
		FileID:    id,
		BaseName:  core.DisplayName(p.File.FilePath),
		Sheets:    p.Sheets,
		Sheet:     p.Sheet,
		Trim:      trim,
		Columns:   p.Columns,
		Types:     typeNames(p.Types),
		Rows:      cellValues(p.Rows),
		TotalRows: p.TotalRows,
		TableName: table,
		ModelName: model,
		Format:    s.cfg.Convert.DefaultFormat,
	}))
}

// handleValidate checks the remembered sheet against the chosen required
// and unique columns.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id, err := fileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := parsePostForm(r); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := withClientIP(r.Context(), r)
	rec, err := s.service.Get(ctx, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	required := r.PostForm["required_columns"]
	unique := r.PostForm["unique_columns"]
	res, err := s.service.Validate(ctx, id, required, unique, r.PostForm.Get("trim") == "on")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.logger(r).Info("file validated",
		"file_id", id,
		"rows", len(res.Rows),
		"error_rows", res.Errors.ErrorRows(),
	)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"columns":     res.Columns,
			"columnTypes": res.Types,
			"rows":        res.Records(),
			"errors":      res.Errors,
		})
		return
	}

	errs := make([]map[string]string, len(res.Errors))
	for i, e := range res.Errors {
		errs[i] = e
	}
	table, model := s.service.DefaultNames()
	renderHTML(w, r, templates.ValidationPage(templates.ValidationData{
		FileID:    id,
		BaseName:  core.DisplayName(rec.FilePath),
		Columns:   res.Columns,
		Types:     typeNames(res.Types),
		Rows:      cellValues(res.Rows),
		Errors:    errs,
		ErrorRows: res.Errors.ErrorRows(),
		TableName: table,
		ModelName: model,
		Format:    s.cfg.Convert.DefaultFormat,
	}))
}

// handleGenerate writes the script for the remembered sheet and shows it.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id, err := fileIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	raw := r.PostFormValue("format")
	if raw == "" {
		raw = s.cfg.Convert.DefaultFormat
	}
	format, err := core.ParseFormat(raw)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := withClientIP(r.Context(), r)
	res, err := s.service.Generate(ctx, id, format, core.GenerateOptions{
		TableName: r.PostFormValue("table_name"),
		ModelName: r.PostFormValue("model_name"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	downloadURL := "/download/" + url.PathEscape(res.FileName)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"format":       res.Format,
			"script":       res.Script,
			"download_url": downloadURL,
		})
		return
	}

	rec, err := s.service.Get(ctx, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	renderHTML(w, r, templates.GeneratePage(templates.GenerateData{
		FileID:      id,
		BaseName:    core.DisplayName(rec.FilePath),
		Format:      string(res.Format),
		Script:      res.Script,
		DownloadURL: downloadURL,
	}))
}

// handleDownload serves a generated script as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, err := s.service.DownloadPath(name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}

// healthResponse is the body of /healthz.
type healthResponse struct {
	Status      string                    `json:"status"`
	Store       string                    `json:"store,omitempty"`
	StoreError  string                    `json:"store_error,omitempty"`
	Conversions core.ConvertLimiterStatus `json:"conversions"`
	Time        time.Time                 `json:"time"`
}

// handleHealth reports store reachability and conversion capacity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Conversions: s.service.Limiter().Status(),
		Time:        time.Now().UTC(),
	}
	status := http.StatusOK

	if s.health != nil {
		resp.Store = s.health.Backend()
		if err := s.health.Ping(r.Context()); err != nil {
			resp.Status = "unavailable"
			resp.StoreError = core.MapError(err).Message
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}

// respondJSONError answers upload requests, which are always fetched as JSON.
func (s *Server) respondJSONError(w http.ResponseWriter, r *http.Request, err error) {
	r.Header.Set("Accept", "application/json")
	s.respondError(w, r, err)
}
