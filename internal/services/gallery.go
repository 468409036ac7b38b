// Package services holds the gallery use cases: listing directories through
// the cache, storing uploads with their side effects and serving thumbnails.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"file-gallery/internal/browse"
	"file-gallery/internal/observability"
	"file-gallery/internal/platform/cache"
	"file-gallery/internal/platform/database"
	"file-gallery/internal/platform/filestore"
	"file-gallery/internal/platform/storage"
)

var (
	ErrNoFiles         = errors.New("no files provided")
	ErrNotImage        = errors.New("file is not a thumbnailable image")
	ErrJournalDisabled = errors.New("upload journal is not configured")
)

// SaveError reports the file an upload request failed on.
type SaveError struct {
	Name string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("error saving %s: %v", e.Name, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Cache stores listings and thumbnails.
type Cache interface {
	GetListing(ctx context.Context, dir string) (*browse.Listing, error)
	SetListing(ctx context.Context, l *browse.Listing) error
	InvalidateListing(ctx context.Context, dir string) error
	GetThumbnail(ctx context.Context, key string) ([]byte, error)
	SetThumbnail(ctx context.Context, key string, data []byte) error
	Health(ctx context.Context) error
}

// Mirror copies stored files to object storage.
type Mirror interface {
	PutFile(ctx context.Context, rel, localPath string) (storage.ObjectInfo, error)
	Stat(ctx context.Context, rel string) (storage.ObjectInfo, error)
	Health(ctx context.Context) error
}

// Journal records uploads.
type Journal interface {
	RecordBatch(ctx context.Context, uploads []*database.Upload) (uuid.UUID, error)
	ListRecent(ctx context.Context, page database.PaginationParams) ([]*database.Upload, error)
	ListByDirectory(ctx context.Context, dir string, page database.PaginationParams) ([]*database.Upload, error)
	ListBatch(ctx context.Context, batchID uuid.UUID) ([]*database.Upload, error)
	Count(ctx context.Context) (int, error)
	Health(ctx context.Context) error
}

// Thumbnailer scales images down.
type Thumbnailer interface {
	GenerateThumbnail(ctx context.Context, data io.Reader) (*storage.Thumbnail, error)
}

// IncomingFile is one file part of an upload request.
type IncomingFile interface {
	Filename() string
	Open() (io.ReadCloser, error)
}

// UploadRequest is everything one POST carries.
type UploadRequest struct {
	Directory  string
	Files      []IncomingFile
	Fields     map[string]string
	RemoteAddr string
}

// UploadReport describes a completed upload request.
type UploadReport struct {
	Saved      []*filestore.Saved
	TotalBytes int64
	Mirrored   int
	Journaled  bool
	BatchID    uuid.UUID
}

// GalleryService implements the file gallery on top of a file store. Cache,
// mirror and journal are optional; nil disables them.
type GalleryService struct {
	store   *filestore.Store
	thumbs  Thumbnailer
	cache   Cache
	mirror  Mirror
	journal Journal
	logger  *observability.Logger
	tracer  trace.Tracer
}

// NewGalleryService creates the service around a file store.
func NewGalleryService(store *filestore.Store, thumbs Thumbnailer, logger *observability.Logger) *GalleryService {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if thumbs == nil {
		thumbs = storage.NewImageProcessor(storage.DefaultThumbnailSize, storage.DefaultThumbnailSize, 85)
	}
	return &GalleryService{
		store:  store,
		thumbs: thumbs,
		logger: logger.Component("gallery"),
		tracer: otel.Tracer("file-gallery/services"),
	}
}

// WithCache enables the listing and thumbnail cache.
func (s *GalleryService) WithCache(c Cache) *GalleryService {
	s.cache = c
	return s
}

// WithMirror enables mirroring of uploads to object storage.
func (s *GalleryService) WithMirror(m Mirror) *GalleryService {
	s.mirror = m
	return s
}

// WithJournal enables the upload journal.
func (s *GalleryService) WithJournal(j Journal) *GalleryService {
	s.journal = j
	return s
}

// Store returns the underlying file store.
func (s *GalleryService) Store() *filestore.Store {
	return s.store
}

// Stat resolves a request path.
func (s *GalleryService) Stat(rel string) (fs.FileInfo, error) {
	return s.store.Stat(rel)
}

// Open opens a file for download.
func (s *GalleryService) Open(rel string) (*os.File, fs.FileInfo, error) {
	return s.store.Open(rel)
}

// Listing returns the listing of dir, from the cache when possible.
func (s *GalleryService) Listing(ctx context.Context, dir string) (*browse.Listing, error) {
	clean, err := filestore.Clean(dir)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		l, err := s.cache.GetListing(ctx, clean)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn(ctx).Err(err).Str("dir", clean).Msg("Listing cache read failed")
		}
	}

	l, err := s.store.List(ctx, clean)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetListing(ctx, l); err != nil {
			s.logger.Warn(ctx).Err(err).Str("dir", clean).Msg("Listing cache write failed")
		}
	}
	return l, nil
}

// Upload saves every file of req into its directory. The first failing file
// aborts the request with a *SaveError; files saved before it stay. Cache
// invalidation, mirroring and journaling run for whatever was saved and
// their failures are only logged.
func (s *GalleryService) Upload(ctx context.Context, req UploadRequest) (*UploadReport, error) {
	ctx, span := s.tracer.Start(ctx, "gallery.Upload", trace.WithAttributes(
		attribute.String("upload.directory", req.Directory),
		attribute.Int("upload.file_count", len(req.Files)),
	))
	defer span.End()

	dir, err := filestore.Clean(req.Directory)
	if err != nil {
		span.SetStatus(codes.Error, "forbidden path")
		return nil, err
	}
	info, err := s.store.Stat(dir)
	if err != nil || !info.IsDir() {
		span.SetStatus(codes.Error, "not a directory")
		return nil, filestore.ErrNotDirectory
	}
	if len(req.Files) == 0 {
		span.SetStatus(codes.Error, "no files")
		return nil, ErrNoFiles
	}

	report := &UploadReport{}
	var saveErr error
	for _, f := range req.Files {
		saved, err := s.save(ctx, dir, f)
		if err != nil {
			saveErr = &SaveError{Name: f.Filename(), Err: err}
			break
		}
		report.Saved = append(report.Saved, saved)
		report.TotalBytes += saved.Size
	}

	if len(report.Saved) > 0 {
		s.afterSave(ctx, dir, req, report)
	}

	span.SetAttributes(
		attribute.Int("upload.saved_count", len(report.Saved)),
		attribute.Int64("upload.total_bytes", report.TotalBytes),
	)
	if saveErr != nil {
		span.RecordError(saveErr)
		span.SetStatus(codes.Error, "save failed")
		s.logger.Error(ctx).Err(saveErr).Str("dir", dir).Msg("Upload failed")
		return report, saveErr
	}

	span.SetStatus(codes.Ok, "upload stored")
	s.logger.Info(ctx).
		Str("dir", dir).
		Int("file_count", len(report.Saved)).
		Int64("total_bytes", report.TotalBytes).
		Msg("Upload stored")
	return report, nil
}

func (s *GalleryService) save(ctx context.Context, dir string, f IncomingFile) (*filestore.Saved, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return s.store.Save(ctx, dir, f.Filename(), r)
}

func (s *GalleryService) afterSave(ctx context.Context, dir string, req UploadRequest, report *UploadReport) {
	if s.cache != nil {
		if err := s.cache.InvalidateListing(ctx, dir); err != nil {
			s.logger.Warn(ctx).Err(err).Str("dir", dir).Msg("Listing cache invalidation failed")
		}
	}

	entries := make([]*database.Upload, 0, len(report.Saved))
	for i, saved := range report.Saved {
		local, _ := s.store.Resolve(saved.Path)
		contentType, err := storage.DetectContentType(local)
		if err != nil {
			s.logger.Debug(ctx).Err(err).Str("path", saved.Path).Msg("Content type detection failed")
		}

		mirrored := s.mirrorFile(ctx, saved, local)
		if mirrored {
			report.Mirrored++
		}

		entries = append(entries, &database.Upload{
			Name:         saved.Name,
			OriginalName: req.Files[i].Filename(),
			Directory:    dir,
			Path:         saved.Path,
			Size:         saved.Size,
			ContentType:  contentType,
			Mirrored:     mirrored,
			RemoteAddr:   req.RemoteAddr,
			Fields:       fieldsMetadata(req.Fields),
		})
	}

	if s.journal == nil {
		return
	}
	batchID, err := s.journal.RecordBatch(ctx, entries)
	if err != nil {
		s.logger.Warn(ctx).Err(err).Str("dir", dir).Msg("Journaling upload failed")
		return
	}
	report.Journaled = true
	report.BatchID = batchID
	s.logger.Debug(ctx).Str("batch_id", batchID.String()).Msg("Upload journaled")
}

// mirrorFile copies a saved file to object storage and reports whether the
// stored object matches it.
func (s *GalleryService) mirrorFile(ctx context.Context, saved *filestore.Saved, local string) bool {
	if s.mirror == nil {
		return false
	}
	if _, err := s.mirror.PutFile(ctx, saved.Path, local); err != nil {
		s.logger.Warn(ctx).Err(err).Str("path", saved.Path).Msg("Mirroring upload failed")
		return false
	}
	obj, err := s.mirror.Stat(ctx, saved.Path)
	if err != nil {
		s.logger.Warn(ctx).Err(err).Str("path", saved.Path).Msg("Mirrored object not found")
		return false
	}
	if obj.Size != saved.Size {
		s.logger.Warn(ctx).
			Str("path", saved.Path).
			Int64("local_size", saved.Size).
			Int64("object_size", obj.Size).
			Msg("Mirrored object size mismatch")
		return false
	}
	return true
}

func fieldsMetadata(fields map[string]string) database.Metadata {
	m := make(database.Metadata, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return m
}

// Thumbnail returns a scaled down version of an image file.
func (s *GalleryService) Thumbnail(ctx context.Context, rel string) (*storage.Thumbnail, error) {
	clean, err := filestore.Clean(rel)
	if err != nil {
		return nil, err
	}
	info, err := s.store.Stat(clean)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, filestore.ErrNotFound
	}
	if browse.KindOf(clean) != browse.KindImage || strings.EqualFold(path.Ext(clean), ".svg") {
		return nil, ErrNotImage
	}

	key := cache.ThumbnailKey(clean, info.ModTime())
	if s.cache != nil {
		if data, err := s.cache.GetThumbnail(ctx, key); err == nil {
			return &storage.Thumbnail{Data: data, ContentType: sniffThumbnail(data)}, nil
		}
	}

	f, _, err := s.store.Open(clean)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	thumb, err := s.thumbs.GenerateThumbnail(ctx, f)
	if errors.Is(err, storage.ErrUnsupportedImage) {
		return nil, ErrNotImage
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate thumbnail for %s: %w", clean, err)
	}

	if s.cache != nil {
		if err := s.cache.SetThumbnail(ctx, key, thumb.Data); err != nil {
			s.logger.Warn(ctx).Err(err).Str("path", clean).Msg("Thumbnail cache write failed")
		}
	}
	return thumb, nil
}

// sniffThumbnail tells the two encodings GenerateThumbnail produces apart.
func sniffThumbnail(data []byte) string {
	if len(data) >= 8 && string(data[1:4]) == "PNG" {
		return "image/png"
	}
	return "image/jpeg"
}

// RecentUploads returns the newest journal entries.
func (s *GalleryService) RecentUploads(ctx context.Context, limit int) ([]*database.Upload, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	return s.journal.ListRecent(ctx, database.PaginationParams{Limit: limit})
}

// DirectoryUploads returns the newest journal entries of one directory.
func (s *GalleryService) DirectoryUploads(ctx context.Context, dir string, limit int) ([]*database.Upload, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	clean, err := filestore.Clean(dir)
	if err != nil {
		return nil, err
	}
	return s.journal.ListByDirectory(ctx, clean, database.PaginationParams{Limit: limit})
}

// BatchUploads returns the files stored by one upload request.
func (s *GalleryService) BatchUploads(ctx context.Context, batchID uuid.UUID) ([]*database.Upload, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	return s.journal.ListBatch(ctx, batchID)
}

// UploadCount returns the number of journaled files.
func (s *GalleryService) UploadCount(ctx context.Context) (int, error) {
	if s.journal == nil {
		return 0, ErrJournalDisabled
	}
	return s.journal.Count(ctx)
}

// Health checks the file root and each configured backend. Keys are the
// names of the checked systems.
func (s *GalleryService) Health(ctx context.Context) map[string]error {
	checks := map[string]error{}
	if info, err := os.Stat(s.store.Root()); err != nil {
		checks["files"] = err
	} else if !info.IsDir() {
		checks["files"] = filestore.ErrNotDirectory
	} else {
		checks["files"] = nil
	}
	if s.cache != nil {
		checks["cache"] = s.cache.Health(ctx)
	}
	if s.journal != nil {
		checks["database"] = s.journal.Health(ctx)
	}
	if s.mirror != nil {
		checks["storage"] = s.mirror.Health(ctx)
	}
	return checks
}
