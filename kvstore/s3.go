package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/rs/zerolog"
)

type (
	S3Config struct {
		Bucket    string
		Endpoint  string
		Region    string
		KeyPrefix string
	}

	// S3KVStore stores each key as one object under KeyPrefix.
	S3KVStore struct {
		cfg        S3Config
		uploader   *s3manager.Uploader
		downloader *s3manager.Downloader
	}
)

func NewS3KVStore(cfg S3Config) (*S3KVStore, error) {
	s3Config := &aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewEnvCredentials(),
	}
	if cfg.Endpoint != "" {
		s3Config.Endpoint = aws.String(cfg.Endpoint)
		s3Config.S3ForcePathStyle = aws.Bool(true)
	}

	s3Session, err := session.NewSession(s3Config)
	if err != nil {
		return nil, fmt.Errorf("error making new session: %w", err)
	}

	return &S3KVStore{
		cfg:        cfg,
		uploader:   s3manager.NewUploader(s3Session),
		downloader: s3manager.NewDownloader(s3Session),
	}, nil
}

func (sks *S3KVStore) objectKey(key string) string {
	return sks.cfg.KeyPrefix + key
}

func (sks *S3KVStore) Get(ctx context.Context, key string) (string, error) {
	logger := zerolog.Ctx(ctx)
	buf := &aws.WriteAtBuffer{}

	s := time.Now()
	_, err := sks.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(sks.cfg.Bucket),
		Key:    aws.String(sks.objectKey(key)),
	})
	var aerr awserr.Error
	if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error downloading from s3: %w", err)
	}

	d := time.Since(s)
	logger.Debug().Str("key", key).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("downloaded state from s3")

	return string(buf.Bytes()), nil
}

func (sks *S3KVStore) Set(ctx context.Context, key, value string) error {
	logger := zerolog.Ctx(ctx)

	s := time.Now()
	_, err := sks.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(sks.cfg.Bucket),
		Key:         aws.String(sks.objectKey(key)),
		Body:        strings.NewReader(value),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("error uploading to s3: %w", err)
	}

	d := time.Since(s)
	logger.Debug().Str("key", key).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("uploaded state to s3")
	return nil
}

func (sks *S3KVStore) Shutdown(_ context.Context) error {
	return nil
}
