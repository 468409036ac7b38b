// Package testutils starts throwaway Postgres, Valkey and MinIO containers for
// integration tests and builds HTTP fixtures. It only depends on config so any
// package may use it from its own tests.
package testutils

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	redisModule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"file-gallery/internal/config"
)

const (
	minioUser     = "testuser"
	minioPassword = "testpass123"
)

// SkipIfShort skips integration tests under -short.
func SkipIfShort(t testing.TB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

func terminateOnCleanup(t testing.TB, c testcontainers.Container) {
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
}

// StartPostgres runs a PostgreSQL container and returns its connection URL.
func StartPostgres(t testing.TB) string {
	t.Helper()
	SkipIfShort(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.WithSQLDriver("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	terminateOnCleanup(t, container)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	if err := waitForPostgres(ctx, connStr); err != nil {
		t.Fatalf("postgres never became ready: %v", err)
	}
	return connStr
}

func waitForPostgres(ctx context.Context, connStr string) error {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return err
	}
	defer db.Close()

	for i := 0; ; i++ {
		err := db.PingContext(ctx)
		if err == nil || i == 9 {
			return err
		}
		time.Sleep(time.Second)
	}
}

// StartRedis runs a Valkey container and returns an enabled cache config
// pointing at it.
func StartRedis(t testing.TB) config.CacheConfig {
	t.Helper()
	SkipIfShort(t)
	ctx := context.Background()

	container, err := redisModule.Run(ctx, "valkey/valkey:7-alpine")
	if err != nil {
		t.Fatalf("failed to start valkey container: %v", err)
	}
	terminateOnCleanup(t, container)

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get valkey endpoint: %v", err)
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("failed to parse valkey endpoint %s: %v", uri, err)
	}

	return config.CacheConfig{
		Enabled:     true,
		Address:     opts.Addr,
		DefaultTTL:  time.Hour,
		DialTimeout: 5 * time.Second,
		PoolSize:    5,
	}
}

// StartMinio runs a MinIO container and returns an enabled storage config
// for bucket.
func StartMinio(t testing.TB, bucket string) config.StorageConfig {
	t.Helper()
	SkipIfShort(t)
	ctx := context.Background()

	container, err := minio.Run(ctx,
		"minio/minio:latest",
		minio.WithUsername(minioUser),
		minio.WithPassword(minioPassword),
	)
	if err != nil {
		t.Fatalf("failed to start minio container: %v", err)
	}
	terminateOnCleanup(t, container)

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get minio endpoint: %v", err)
	}

	return config.StorageConfig{
		Enabled:         true,
		Endpoint:        endpoint,
		AccessKeyID:     minioUser,
		SecretAccessKey: minioPassword,
		BucketName:      bucket,
		Region:          "us-east-1",
	}
}
