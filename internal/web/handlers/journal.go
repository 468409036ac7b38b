package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"file-gallery/internal/platform/database"
	"file-gallery/internal/platform/filestore"
	"file-gallery/internal/services"
)

// UploadsResponse lists journal entries. Count is the number of entries in
// this response, Total the number of journaled files.
type UploadsResponse struct {
	Uploads []*database.Upload `json:"uploads"`
	Count   int                `json:"count"`
	Total   int                `json:"total"`
}

// recentUploadsHandler returns journaled uploads, newest first. ?batch=ID
// selects one upload request, ?dir=D one directory, ?limit=N the page size.
func (h *Handler) recentUploadsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := database.DefaultPagination()
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		page.Limit = n
	}
	page.Validate()

	ctx := r.Context()
	var (
		uploads []*database.Upload
		err     error
	)
	switch {
	case query.Has("batch"):
		batchID, perr := uuid.Parse(query.Get("batch"))
		if perr != nil {
			http.Error(w, "invalid batch id", http.StatusBadRequest)
			return
		}
		uploads, err = h.gallery.BatchUploads(ctx, batchID)
	case query.Has("dir"):
		uploads, err = h.gallery.DirectoryUploads(ctx, query.Get("dir"), page.Limit)
	default:
		uploads, err = h.gallery.RecentUploads(ctx, page.Limit)
	}
	if !h.uploadsError(w, r, err) {
		return
	}

	total, err := h.gallery.UploadCount(ctx)
	if !h.uploadsError(w, r, err) {
		return
	}
	if uploads == nil {
		uploads = []*database.Upload{}
	}

	writeJSON(w, http.StatusOK, UploadsResponse{Uploads: uploads, Count: len(uploads), Total: total})
}

// uploadsError writes the response for a failed journal query and reports
// whether the handler may go on.
func (h *Handler) uploadsError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, services.ErrJournalDisabled):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, filestore.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		h.logger.Error(r.Context()).Err(err).Msg("Failed to list uploads")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
	return false
}
