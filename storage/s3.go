package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"mymerch/config"
)

const s3Prefix = "previews/"

// s3API is the subset of the S3 client used by S3Store
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store uploads images to an S3-compatible bucket (AWS S3, MinIO, etc.).
// References have the form s3://bucket/previews/<key>.
type S3Store struct {
	client s3API
	bucket string
	logger *zap.Logger
}

// S3StoreOption configures an S3Store
type S3StoreOption func(*S3Store)

// WithS3Logger sets the logger
func WithS3Logger(logger *zap.Logger) S3StoreOption {
	return func(s *S3Store) {
		s.logger = logger
	}
}

// WithS3Client replaces the SDK client
func WithS3Client(client s3API) S3StoreOption {
	return func(s *S3Store) {
		s.client = client
	}
}

// NewS3Store creates an S3Store from configuration. Static credentials are
// used when both keys are set; otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, opts ...S3StoreOption) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	store := &S3Store{bucket: cfg.S3Bucket, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(store)
	}
	if store.client != nil {
		return store, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	store.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return store, nil
}

var _ ImageStore = (*S3Store)(nil)

func (s *S3Store) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	key := s3Prefix + newKey(contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(key)),
	})
	if err != nil {
		s.logger.Error("Failed to upload preview", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	s.logger.Debug("Preview uploaded", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("size", len(data)))
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, fmt.Sprintf("s3://%s/", s.bucket))
	if !ok || key == "" {
		return fmt.Errorf("invalid image reference %q", ref)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
