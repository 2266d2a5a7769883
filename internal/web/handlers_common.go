package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/sheetconv/internal/core"
	"github.com/JonMunkholm/sheetconv/internal/logging"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
)

// fileIDParam parses the {fileID} URL parameter. A malformed id is reported
// as a missing file.
func fileIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "fileID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", core.ErrFileNotFound, raw)
	}
	return id, nil
}

// parsePostForm fills r.PostForm from urlencoded or multipart bodies.
func parsePostForm(r *http.Request) error {
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

// previewURL links to the preview page, optionally for one sheet.
func previewURL(id int64, sheet string) string {
	u := "/preview/" + strconv.FormatInt(id, 10)
	if sheet != "" {
		u += "?sheet=" + url.QueryEscape(sheet)
	}
	return u
}

// renderHTML writes a component as a 200 HTML response.
func renderHTML(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "path", r.URL.Path, "error", err)
	}
}

// typeNames converts inferred types for display.
func typeNames(types core.ColumnTypeMap) map[string]string {
	out := make(map[string]string, len(types))
	for col, t := range types {
		out[col] = string(t)
	}
	return out
}

// cellValues flattens rows for display, nulls as empty strings.
func cellValues(rows []core.Row) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		vals := make([]string, len(row))
		for j, c := range row {
			vals[j] = c.Value
		}
		out[i] = vals
	}
	return out
}

func (s *Server) logger(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context())
}
