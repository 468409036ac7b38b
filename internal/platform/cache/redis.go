// Package cache keeps rendered directory listings and thumbnails in
// Redis/Valkey.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"file-gallery/internal/browse"
	"file-gallery/internal/config"
)

// ErrCacheMiss is returned when a key is not cached.
var ErrCacheMiss = errors.New("key not found in cache")

const (
	listingPrefix   = "listing:"
	thumbnailPrefix = "thumb:"
)

// RedisClient wraps the Redis client with application-specific functionality.
// It works with both Redis and Valkey.
type RedisClient struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedisClient connects to the configured server and pings it.
func NewRedisClient(cfg config.CacheConfig) (*RedisClient, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("cache is disabled")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.Database,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis/Valkey: %w", err)
	}

	return NewFromClient(rdb, cfg.DefaultTTL), nil
}

// NewFromClient wraps an existing connection.
func NewFromClient(rdb *redis.Client, defaultTTL time.Duration) *RedisClient {
	return &RedisClient{client: rdb, defaultTTL: defaultTTL}
}

// ListingKey is the cache key of a directory listing.
func ListingKey(dir string) string {
	return listingPrefix + strings.Trim(dir, "/")
}

// ThumbnailKey is the cache key of a thumbnail. The modification time is
// part of the key so a replaced file never serves a stale thumbnail.
func ThumbnailKey(file string, modTime time.Time) string {
	return fmt.Sprintf("%s%s:%d", thumbnailPrefix, strings.Trim(file, "/"), modTime.UnixNano())
}

// GetListing returns the cached listing of dir.
func (r *RedisClient) GetListing(ctx context.Context, dir string) (*browse.Listing, error) {
	var l browse.Listing
	if err := r.Get(ctx, ListingKey(dir), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// SetListing caches a listing under its own path.
func (r *RedisClient) SetListing(ctx context.Context, l *browse.Listing) error {
	return r.Set(ctx, ListingKey(l.Path), l, 0)
}

// InvalidateListing drops the cached listings of dir and of its parent,
// whose entry for dir carries a modification time.
func (r *RedisClient) InvalidateListing(ctx context.Context, dir string) error {
	dir = strings.Trim(dir, "/")
	keys := []string{ListingKey(dir)}
	if dir != "" {
		parent := path.Dir(dir)
		if parent == "." {
			parent = ""
		}
		keys = append(keys, ListingKey(parent))
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate listing %q: %w", dir, err)
	}
	return nil
}

// GetThumbnail returns cached thumbnail bytes.
func (r *RedisClient) GetThumbnail(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thumbnail from cache: %w", err)
	}
	return data, nil
}

// SetThumbnail caches encoded thumbnail bytes.
func (r *RedisClient) SetThumbnail(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, key, data, r.defaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache thumbnail: %w", err)
	}
	return nil
}

// Health checks if the Redis/Valkey connection is healthy
func (r *RedisClient) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis/valkey health check failed: %w", err)
	}
	return nil
}

// Close closes the Redis/Valkey connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// FlushCache removes every listing and thumbnail key.
func (r *RedisClient) FlushCache(ctx context.Context) error {
	for _, prefix := range []string{listingPrefix, thumbnailPrefix} {
		iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
		}
	}
	return nil
}

// Get retrieves a cached value by key and unmarshals it into result
func (r *RedisClient) Get(ctx context.Context, key string, result interface{}) error {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal(val, result); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return nil
}

// Set caches a value with the specified key and TTL; zero means the default TTL.
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if ttl == 0 {
		ttl = r.defaultTTL
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache value: %w", err)
	}

	return nil
}
