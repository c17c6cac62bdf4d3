package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/danthegoodman1/icetable/gologger"
	"github.com/danthegoodman1/icetable/utils"
)

var (
	logger = gologger.NewLogger()

	// ErrNotFound is returned by Get when the key has never been written.
	ErrNotFound = errors.New("key not found")

	ErrUnknownBackend = errors.New("unknown kv backend")
)

type (
	// KVStore is the durable text key-value store that table state survives restarts in.
	KVStore interface {
		// Get returns the value stored under key, or ErrNotFound
		Get(ctx context.Context, key string) (string, error)
		// Set overwrites the value stored under key
		Set(ctx context.Context, key, value string) error

		Shutdown(ctx context.Context) error
	}
)

// NewFromEnv builds the backend named by KV_BACKEND.
func NewFromEnv(ctx context.Context) (KVStore, error) {
	logger.Debug().Str("backend", utils.KV_BACKEND).Msg("building kv store")
	switch utils.KV_BACKEND {
	case "memory":
		return NewMemoryKVStore(), nil
	case "disk":
		return NewDiskKVStore(utils.KV_DISK_PATH)
	case "redis":
		return NewRedisKVStore(ctx, utils.REDIS_ADDR, utils.REDIS_PASSWORD)
	case "crdb":
		return NewCRDBKVStore()
	case "s3":
		return NewS3KVStore(S3Config{
			Bucket:    utils.S3_BUCKET_NAME,
			Endpoint:  utils.S3_ENDPOINT,
			Region:    utils.AWS_DEFAULT_REGION,
			KeyPrefix: utils.S3_KEY_PREFIX,
		})
	case "minio":
		return NewMinioKVStore(MinioConfig{
			Endpoint:  utils.MINIO_ENDPOINT,
			AccessKey: utils.MINIO_ACCESS_KEY,
			SecretKey: utils.MINIO_SECRET_KEY,
			Secure:    utils.MINIO_SECURE,
			Bucket:    utils.S3_BUCKET_NAME,
			KeyPrefix: utils.S3_KEY_PREFIX,
		})
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownBackend, utils.KV_BACKEND)
	}
}
