package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/docuvault/backend/internal/config"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOClient struct {
	client        *minio.Client
	bucket        string
	presignExpiry time.Duration
}

func NewMinIOClient(cfg config.MinIOConfig) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &MinIOClient{
		client:        client,
		bucket:        cfg.Bucket,
		presignExpiry: expiry,
	}, nil
}

// PresignedPutURL returns a direct-upload URL for the given storage key.
// Clients upload blobs themselves; the backend only records the key.
func (m *MinIOClient) PresignedPutURL(ctx context.Context, storageKey string) (string, error) {
	urlValue, err := m.client.PresignedPutObject(ctx, m.bucket, storageKey, m.presignExpiry)
	if err != nil {
		logger.Error("minio_presign_put_failed", err, map[string]interface{}{
			"storage_key": storageKey,
			"bucket":      m.bucket,
		})
		return "", err
	}
	return urlValue.String(), nil
}

func (m *MinIOClient) PresignedGetURL(ctx context.Context, storageKey string) (string, error) {
	urlValue, err := m.client.PresignedGetObject(ctx, m.bucket, storageKey, m.presignExpiry, nil)
	if err != nil {
		logger.Error("minio_presign_get_failed", err, map[string]interface{}{
			"storage_key": storageKey,
			"bucket":      m.bucket,
		})
		return "", err
	}
	return urlValue.String(), nil
}

// PresignedDownloadURL forces a content-disposition so browsers save the blob
// under the node's label rather than the opaque storage key.
func (m *MinIOClient) PresignedDownloadURL(ctx context.Context, storageKey, filename, contentType string) (string, error) {
	query := make(url.Values)
	if contentType != "" {
		query.Set("response-content-type", contentType)
	}
	if filename != "" {
		query.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}

	urlValue, err := m.client.PresignedGetObject(ctx, m.bucket, storageKey, m.presignExpiry, query)
	if err != nil {
		return "", err
	}
	return urlValue.String(), nil
}

func (m *MinIOClient) Upload(ctx context.Context, storageKey string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, storageKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("minio_upload_failed", err, map[string]interface{}{
			"storage_key":  storageKey,
			"size":         size,
			"content_type": contentType,
			"bucket":       m.bucket,
		})
	}
	return err
}

func (m *MinIOClient) Download(ctx context.Context, storageKey string) (*minio.Object, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, storageKey, minio.GetObjectOptions{})
	if err != nil {
		logger.Error("minio_download_failed", err, map[string]interface{}{
			"storage_key": storageKey,
			"bucket":      m.bucket,
		})
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		return nil, err
	}
	return obj, nil
}

func (m *MinIOClient) Delete(ctx context.Context, storageKey string) error {
	err := m.client.RemoveObject(ctx, m.bucket, storageKey, minio.RemoveObjectOptions{})
	if err != nil {
		logger.Error("minio_delete_failed", err, map[string]interface{}{
			"storage_key": storageKey,
			"bucket":      m.bucket,
		})
	}
	return err
}

func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed creating bucket %s: %w", m.bucket, err)
	}
	return nil
}
