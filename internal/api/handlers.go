package api

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/starford/lintel/internal/apperr"
	"github.com/starford/lintel/internal/checksum"
	"github.com/starford/lintel/internal/site"
)

// Handler holds HTTP route handlers.
type Handler struct {
	svc *site.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *site.Service) *Handler {
	return &Handler{svc: svc}
}

// Health handles GET /health/live and /health/ready.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Page handles GET /*. HTML and Markdown pages are decorated with the
// shared layout; other files are served unchanged.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	urlPath := r.URL.Path

	file, info, err := h.svc.Resolve(urlPath)
	if err != nil {
		h.writeError(w, urlPath, err)
		return
	}
	if !site.IsPage(file) {
		h.serveAsset(w, r, file, info)
		return
	}

	page, err := h.svc.RenderFile(r.Context(), urlPath, file, info)
	if err != nil {
		h.writeError(w, urlPath, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(page.HTML)
	}
}

func (h *Handler) serveAsset(w http.ResponseWriter, r *http.Request, file string, info fs.FileInfo) {
	data, err := h.svc.Read(file)
	if err != nil {
		h.writeError(w, file, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(data))
	http.ServeContent(w, r, file, info.ModTime(), bytes.NewReader(data))
}

func (h *Handler) writeError(w http.ResponseWriter, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found", path))
	case errors.Is(err, apperr.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid path", path))
	default:
		slog.Error("page request failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error", ""))
	}
}
