package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"file-gallery/internal/config"
	"file-gallery/internal/observability"
	"file-gallery/internal/platform/cache"
	"file-gallery/internal/platform/database"
	"file-gallery/internal/platform/filestore"
	"file-gallery/internal/platform/storage"
)

// Container holds all the application dependencies
type Container struct {
	config *config.Config
	logger *observability.Logger

	store   *filestore.Store
	cache   *cache.RedisClient
	mirror  *storage.Mirror
	db      *sql.DB
	gallery *GalleryService
}

// NewContainer builds the gallery service from cfg. Only the file root is
// mandatory: a cache, mirror or database that cannot be reached is logged and
// left disabled.
func NewContainer(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Container, error) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	c := &Container{config: cfg, logger: logger.Component("container")}

	store, created, err := filestore.New(cfg.FileRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to open file root: %w", err)
	}
	if created {
		c.logger.Warn(ctx).Str("root", store.Root()).Msg("File root did not exist and was created")
	}
	c.store = store

	thumbs := storage.NewImageProcessor(storage.DefaultThumbnailSize, storage.DefaultThumbnailSize, 85)
	c.gallery = NewGalleryService(store, thumbs, logger)

	c.initCache(ctx)
	c.initMirror(ctx)
	c.initJournal(ctx)

	c.logger.Info(ctx).
		Str("root", store.Root()).
		Bool("cache", c.cache != nil).
		Bool("mirror", c.mirror != nil).
		Bool("journal", c.db != nil).
		Msg("Dependency injection container initialized")
	return c, nil
}

func (c *Container) initCache(ctx context.Context) {
	if !c.config.Cache.Enabled {
		return
	}
	rc, err := cache.NewRedisClient(c.config.Cache)
	if err != nil {
		c.logger.Warn(ctx).Err(err).Str("address", c.config.Cache.Address).Msg("Cache unavailable, continuing without it")
		return
	}
	// Files may have changed on disk while the server was down.
	if err := rc.FlushCache(ctx); err != nil {
		c.logger.Warn(ctx).Err(err).Msg("Failed to flush stale cache entries")
	} else {
		c.logger.Info(ctx).Msg("Cache flushed")
	}
	c.cache = rc
	c.gallery.WithCache(rc)
}

func (c *Container) initMirror(ctx context.Context) {
	if !c.config.Storage.Enabled {
		return
	}
	m, err := storage.NewMirror(ctx, c.config.Storage)
	if err != nil {
		c.logger.Warn(ctx).Err(err).Str("endpoint", c.config.Storage.Endpoint).Msg("Object storage unavailable, uploads will not be mirrored")
		return
	}
	c.mirror = m
	c.gallery.WithMirror(m)
}

func (c *Container) initJournal(ctx context.Context) {
	if !c.config.JournalEnabled() {
		return
	}
	db, err := database.NewConnection(ctx, c.config.DatabaseURL)
	if err != nil {
		c.logger.Warn(ctx).Err(err).Msg("Database unavailable, uploads will not be journaled")
		return
	}
	if err := database.RunMigrations(ctx, db, c.logger); err != nil {
		c.logger.Warn(ctx).Err(err).Msg("Migrations failed, uploads will not be journaled")
		db.Close()
		return
	}
	c.db = db
	c.gallery.WithJournal(database.NewUploadRepository(db))
}

func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Gallery() *GalleryService {
	return c.gallery
}

func (c *Container) Store() *filestore.Store {
	return c.store
}

// Close releases every backend connection.
func (c *Container) Close() error {
	var errs []error
	if c.cache != nil {
		errs = append(errs, c.cache.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	return errors.Join(errs...)
}
