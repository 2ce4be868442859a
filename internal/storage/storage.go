package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// ObjectStore stores an object and returns its public URL
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Config holds the S3-compatible storage settings
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	UseSSL        bool
}

// ConfigFromEnv reads STORAGE_* environment variables
func ConfigFromEnv() Config {
	useSSL := true
	if v := os.Getenv("STORAGE_USE_SSL"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			useSSL = parsed
		}
	}
	return Config{
		Endpoint:      os.Getenv("STORAGE_ENDPOINT"),
		AccessKey:     os.Getenv("STORAGE_ACCESS_KEY"),
		SecretKey:     os.Getenv("STORAGE_SECRET_KEY"),
		Bucket:        getEnvOrDefault("STORAGE_BUCKET", "game-images"),
		PublicBaseURL: os.Getenv("STORAGE_PUBLIC_BASE_URL"),
		UseSSL:        useSSL,
	}
}

// BaseURL returns the public base, falling back to the endpoint itself
func (c Config) BaseURL() string {
	if c.PublicBaseURL != "" {
		return strings.TrimRight(c.PublicBaseURL, "/")
	}
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + c.Endpoint
}

// PublicURL builds <base>/<bucket>/<key>
func PublicURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + strings.TrimLeft(key, "/")
}

// MinioStore uploads objects through minio-go
type MinioStore struct {
	Client      *minio.Client
	Bucket      string
	BaseURL     string
	Logger      *logrus.Logger
	bucketReady bool
}

// NewMinioStore creates a client for the configured endpoint
func NewMinioStore(cfg Config, logger *logrus.Logger) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("storage endpoint must be provided as STORAGE_ENDPOINT")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket must not be empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &MinioStore{
		Client:  client,
		Bucket:  cfg.Bucket,
		BaseURL: cfg.BaseURL(),
		Logger:  logger,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	if s.bucketReady {
		return nil
	}

	exists, err := s.Client.BucketExists(ctx, s.Bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.Bucket, err)
	}
	if !exists {
		if err := s.Client.MakeBucket(ctx, s.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("creating bucket %s: %w", s.Bucket, err)
		}
		s.Logger.Infof("Created bucket %s", s.Bucket)
	}
	s.bucketReady = true
	return nil
}

// Upload stores data under key, overwriting any existing object
func (s *MinioStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := s.EnsureBucket(ctx); err != nil {
		return "", err
	}

	_, err := s.Client.PutObject(ctx, s.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	s.Logger.Debugf("Uploaded %s (%d bytes, %s)", key, len(data), contentType)
	return PublicURL(s.BaseURL, s.Bucket, key), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
