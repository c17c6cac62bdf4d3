package kvstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type (
	MinioConfig struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Secure    bool
		Bucket    string
		KeyPrefix string
	}

	// MinioKVStore is the S3 compatible backend for self hosted object stores.
	MinioKVStore struct {
		cfg    MinioConfig
		client *minio.Client
	}
)

func NewMinioKVStore(cfg MinioConfig) (*MinioKVStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("error in minio.New: %w", err)
	}
	return &MinioKVStore{cfg: cfg, client: client}, nil
}

func (mks *MinioKVStore) Get(ctx context.Context, key string) (string, error) {
	obj, err := mks.client.GetObject(ctx, mks.cfg.Bucket, mks.cfg.KeyPrefix+key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("error in GetObject: %w", err)
	}
	defer obj.Close()

	// GetObject is lazy, a missing key only shows up on the first read
	b, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("error reading object: %w", err)
	}
	return string(b), nil
}

func (mks *MinioKVStore) Set(ctx context.Context, key, value string) error {
	_, err := mks.client.PutObject(ctx, mks.cfg.Bucket, mks.cfg.KeyPrefix+key, strings.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		return fmt.Errorf("error in PutObject: %w", err)
	}
	return nil
}

func (mks *MinioKVStore) Shutdown(_ context.Context) error {
	return nil
}
