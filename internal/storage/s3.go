package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/Shayennn/ptm-noti/internal/config"
)

const presignExpiry = time.Hour

// S3 stores images in an S3-compatible bucket (AWS, MinIO, R2) and
// hands out presigned GET URLs.
type S3 struct {
	client *minio.Client
	bucket string
	log    zerolog.Logger
}

// NewS3 connects to the configured endpoint and creates the bucket if
// it does not exist yet. An empty endpoint means AWS S3 proper.
func NewS3(ctx context.Context, cfg config.S3Config, log zerolog.Logger) (*S3, error) {
	endpoint, secure := splitEndpoint(cfg.Endpoint)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	s := &S3{client: client, bucket: cfg.Bucket, log: log}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *S3) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	s.log.Info().Str("bucket", s.bucket).Msg("created s3 bucket")
	return nil
}

func (s *S3) Upload(ctx context.Context, filename string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, filename, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}
	s.log.Info().Str("object", filename).Msg("image uploaded to s3")
	return nil
}

func (s *S3) Access(ctx context.Context, filename string) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucket, filename, presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign image url: %w", err)
	}
	return url.String(), nil
}

func (s *S3) Attachable() bool { return false }

// splitEndpoint turns a configured endpoint URL into the host form the
// minio client expects. An https:// scheme (or none) means TLS.
func splitEndpoint(endpoint string) (string, bool) {
	switch {
	case endpoint == "":
		return "s3.amazonaws.com", true
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), false
	default:
		return endpoint, true
	}
}
