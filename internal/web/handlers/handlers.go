// Package handlers serves the file root over HTTP: directory pages with their
// gallery and upload dialog, downloads, thumbnails and the upload endpoint.
package handlers

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"file-gallery/internal/config"
	"file-gallery/internal/gallery"
	"file-gallery/internal/observability"
	"file-gallery/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type Handler struct {
	gallery  *services.GalleryService
	config   *config.Config
	logger   *observability.Logger
	tracer   trace.Tracer
	metrics  *observability.HTTPMetrics
	options  gallery.Options
	page     *template.Template
	maxBytes int64
}

// New creates the handler set. metrics may be nil.
func New(svc *services.GalleryService, cfg *config.Config, logger *observability.Logger, metrics *observability.HTTPMetrics) *Handler {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	maxBytes := cfg.MaxUploadSize
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxUploadSize
	}
	return &Handler{
		gallery:  svc,
		config:   cfg,
		logger:   logger.Component("http"),
		tracer:   observability.Tracer(),
		metrics:  metrics,
		options:  gallery.DefaultOptions(),
		page:     template.Must(template.New("index.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/index.html")),
		maxBytes: maxBytes,
	}
}

// NewWithContainer creates the handler set from a services container.
func NewWithContainer(c *services.Container, logger *observability.Logger, metrics *observability.HTTPMetrics) *Handler {
	return New(c.Gallery(), c.Config(), logger, metrics)
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger(h.logger))
	r.Use(observability.TracingMiddleware(h.tracer))
	if h.metrics != nil {
		r.Use(observability.MetricsMiddleware(h.metrics))
	}

	r.Get("/healthz", h.healthzHandler)
	r.Get("/readyz", h.readyzHandler)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/thumbs/*", h.thumbnailHandler)
	r.Get("/api/uploads", h.recentUploadsHandler)

	r.Get("/*", h.browseHandler)
	r.Head("/*", h.browseHandler)
	r.Post("/*", h.uploadHandler)

	return r
}
