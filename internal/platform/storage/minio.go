package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"file-gallery/internal/config"
)

// Mirror copies uploaded files into an S3 compatible bucket under the same
// relative path they have below the file root.
type Mirror struct {
	client     *minio.Client
	bucketName string
}

// NewMirror connects to the configured endpoint and creates the bucket when
// it does not exist yet.
func NewMirror(ctx context.Context, cfg config.StorageConfig) (*Mirror, error) {
	var creds *credentials.Credentials

	// Without static keys fall back to the AWS chain: env, credentials file, IAM roles.
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	} else {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	m := &Mirror{client: client, bucketName: cfg.BucketName}
	if err := m.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mirror) ensureBucket(ctx context.Context, region string) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", m.bucketName, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", m.bucketName, err)
	}
	return nil
}

// Bucket returns the target bucket name.
func (m *Mirror) Bucket() string {
	return m.bucketName
}

// ObjectName maps a slash separated path below the file root to a key.
func ObjectName(rel string) string {
	return strings.TrimPrefix(path.Clean("/"+rel), "/")
}

// PutFile uploads the local file at localPath as object rel. The content
// type is sniffed from the file content.
func (m *Mirror) PutFile(ctx context.Context, rel, localPath string) (ObjectInfo, error) {
	contentType, err := DetectContentType(localPath)
	if err != nil {
		return ObjectInfo{}, err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to open %s: %w", rel, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	upload, err := m.client.PutObject(ctx, m.bucketName, ObjectName(rel), f, info.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to mirror %s: %w", rel, err)
	}

	return ObjectInfo{
		Key:          upload.Key,
		Size:         upload.Size,
		ContentType:  contentType,
		LastModified: upload.LastModified,
	}, nil
}

// DetectContentType sniffs the MIME type of a local file from its content.
func DetectContentType(localPath string) (string, error) {
	mt, err := mimetype.DetectFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to detect content type of %s: %w", filepath.Base(localPath), err)
	}
	return mt.String(), nil
}

// Health checks that the bucket is reachable.
func (m *Mirror) Health(ctx context.Context) error {
	if _, err := m.client.BucketExists(ctx, m.bucketName); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}

// ObjectInfo describes a mirrored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
}

// Stat returns the stored metadata of a mirrored file.
func (m *Mirror) Stat(ctx context.Context, rel string) (ObjectInfo, error) {
	info, err := m.client.StatObject(ctx, m.bucketName, ObjectName(rel), minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to stat object %s: %w", rel, err)
	}
	return objectInfo(info), nil
}

func objectInfo(o minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          o.Key,
		Size:         o.Size,
		ContentType:  o.ContentType,
		LastModified: o.LastModified,
	}
}
