package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"file-gallery/internal/platform/filestore"
	"file-gallery/internal/services"
)

const (
	// FilesField is the multipart field the upload dialog sends files under.
	FilesField = "files[]"

	// maxMemoryPerUpload is buffered in RAM per request, the rest spills to disk.
	maxMemoryPerUpload = 1 << 20
)

// formFile adapts a multipart part to services.IncomingFile.
type formFile struct {
	header *multipart.FileHeader
}

func (f formFile) Filename() string { return f.header.Filename }

func (f formFile) Open() (io.ReadCloser, error) { return f.header.Open() }

// uploadHandler stores the files of a multipart POST in the requested directory.
func (h *Handler) uploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UploadFiles", trace.WithAttributes(
		attribute.String("upload.path", r.URL.Path),
	))
	defer span.End()

	info, err := h.gallery.Stat(r.URL.Path)
	switch {
	case errors.Is(err, filestore.ErrForbidden):
		span.SetStatus(codes.Error, "forbidden path")
		h.writeStoreError(w, r, err)
		return
	case err != nil || !info.IsDir():
		span.SetStatus(codes.Error, "not a directory")
		h.writeStoreError(w, r, filestore.ErrNotDirectory)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(maxMemoryPerUpload); err != nil {
		span.RecordError(err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			span.SetStatus(codes.Error, "request too large")
			h.logger.Warn(ctx).Int64("limit", tooLarge.Limit).Msg("Upload exceeds size limit")
			http.Error(w, "upload exceeds the size limit", http.StatusRequestEntityTooLarge)
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			span.SetStatus(codes.Error, "failed to parse multipart form")
			h.logger.Warn(ctx).Err(err).Msg("Failed to parse multipart form")
			http.Error(w, "malformed upload form", http.StatusBadRequest)
			return
		}
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll() //nolint:errcheck // Cleanup operation
		}
	}()

	req := services.UploadRequest{
		Directory:  r.URL.Path,
		Fields:     map[string]string{},
		RemoteAddr: r.RemoteAddr,
	}
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File[FilesField] {
			req.Files = append(req.Files, formFile{fh})
		}
		// A file part without a filename is parsed as a plain value; it
		// carries no file and is not metadata either.
		for key, values := range r.MultipartForm.Value {
			if key != FilesField && len(values) > 0 {
				req.Fields[key] = values[0]
			}
		}
	}
	span.SetAttributes(attribute.Int("upload.file_count", len(req.Files)))

	report, err := h.gallery.Upload(ctx, req)
	if report != nil {
		h.metrics.RecordUpload(r, report.TotalBytes)
	}

	var saveErr *services.SaveError
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "upload stored")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("upload success")) //nolint:errcheck // Best effort response
	case errors.Is(err, services.ErrNoFiles):
		span.SetStatus(codes.Error, "no files")
		http.Error(w, "no files selected", http.StatusBadRequest)
	case errors.As(err, &saveErr):
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		http.Error(w, saveErr.Error(), http.StatusInternalServerError)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		h.writeStoreError(w, r, err)
	}
}
