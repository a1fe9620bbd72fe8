package minio

import (
	"bytes"
	"context"
	"errors"

	"vaultbooks/pkg/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Client = fx.Module("minio.client", fx.Provide(registerClient, NewObjectStore))

var ErrStorageDisabled = errors.New("object storage is not configured")

// ObjectStore writes whole objects into the configured bucket.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

func registerClient(c *config.Config) (*minio.Client, error) {
	if c.Minio.Endpoint == "" {
		zap.L().Info("MinIO endpoint not configured, object storage disabled")
		return nil, nil
	}

	client, err := minio.New(c.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Minio.AccessKey, c.Minio.SecretKey, ""),
		Secure: c.Minio.Secure,
	})
	if err != nil {
		zap.L().Error("failed to create MinIO client", zap.Error(err))
		return nil, err
	}

	exists, err := client.BucketExists(context.Background(), c.Minio.BucketName)
	if err != nil {
		zap.L().Error("failed to check if bucket exists", zap.String("bucket", c.Minio.BucketName), zap.Error(err))
		return nil, err
	}

	if !exists {
		if err := client.MakeBucket(context.Background(), c.Minio.BucketName, minio.MakeBucketOptions{}); err != nil {
			zap.L().Error("failed to create bucket", zap.String("bucket", c.Minio.BucketName), zap.Error(err))
			return nil, err
		}
	}

	zap.L().Info("MinIO client initialized", zap.String("endpoint", c.Minio.Endpoint), zap.Bool("bucketExists", exists))
	return client, nil
}

type objectStore struct {
	client *minio.Client
	bucket string
}

func NewObjectStore(c *config.Config, client *minio.Client) ObjectStore {
	return &objectStore{client: client, bucket: c.Minio.BucketName}
}

func (s *objectStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if s.client == nil {
		return ErrStorageDisabled
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}
