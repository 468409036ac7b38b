package handlers

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	"file-gallery/internal/browse"
	"file-gallery/internal/gallery"
	"file-gallery/internal/platform/filestore"
	"file-gallery/internal/services"
)

var templateFuncs = template.FuncMap{
	"bytes": func(n int64) string { return humanize.Bytes(uint64(n)) },
	"thumb": thumbHref,
}

// thumbHref points raster images at their thumbnail; SVGs scale on their own.
func thumbHref(href string) string {
	if strings.EqualFold(path.Ext(href), ".svg") {
		return href
	}
	return "/thumbs" + href
}

// pageData is what templates/index.html renders.
type pageData struct {
	Listing   *browse.Listing
	Gallery   gallery.Items
	Options   template.JS
	MaxUpload int64
	Action    string
}

// browseHandler renders directories and serves files.
func (h *Handler) browseHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rel := r.URL.Path

	info, err := h.gallery.Stat(rel)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	if !info.IsDir() {
		h.serveFile(w, r, rel)
		return
	}

	if !strings.HasSuffix(r.URL.Path, "/") {
		target := browse.EscapePath(r.URL.Path + "/")
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}

	listing, err := h.gallery.Listing(ctx, rel)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, listing)
		return
	}

	options, err := json.Marshal(h.options)
	if err != nil {
		h.logger.Error(ctx).Err(err).Msg("Failed to encode gallery options")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data := pageData{
		Listing:   listing,
		Gallery:   listing.GalleryItems(),
		Options:   template.JS(options),
		MaxUpload: h.maxBytes,
		Action:    browse.EscapePath(r.URL.Path),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.page.Execute(w, data); err != nil {
		h.logger.Error(ctx).Err(err).Str("path", rel).Msg("Failed to render directory page")
	}
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, rel string) {
	f, info, err := h.gallery.Open(rel)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	defer f.Close()

	if r.URL.Query().Get("dl") == "1" {
		w.Header().Set("Content-Disposition", attachment(info.Name()))
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// thumbnailHandler serves a scaled down image below /thumbs/.
func (h *Handler) thumbnailHandler(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/thumbs")

	thumb, err := h.gallery.Thumbnail(r.Context(), rel)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", thumb.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(thumb.Data) //nolint:errcheck // client went away
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func attachment(name string) string {
	return `attachment; filename="` + strings.NewReplacer(`"`, "", "\\", "").Replace(name) + `"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Best effort response
}

// writeStoreError maps store and service errors onto plain text responses.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, filestore.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, filestore.ErrNotFound):
		http.Error(w, "file or directory not found", http.StatusNotFound)
	case errors.Is(err, filestore.ErrNotDirectory):
		http.Error(w, "target path is not a directory", http.StatusBadRequest)
	case errors.Is(err, services.ErrNotImage):
		http.Error(w, "not an image", http.StatusUnsupportedMediaType)
	default:
		h.logger.Error(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
