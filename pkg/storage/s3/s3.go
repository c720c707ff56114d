package s3

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/drkane/docdisplay-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "storage/s3")

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3 stores account documents in an S3-compatible bucket, for bulk
// archives too large for local disk.
type S3 struct {
	client *minio.Client
	bucket string
}

func New(cfg Config) (*S3, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create s3 client: %w", err)
	}
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3) Store(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return "", err
	}
	location := fmt.Sprintf("s3://%s/%s", s.bucket, name)
	log.Debugf("saved to: %s", location)
	return location, nil
}

var _ model.Storer = (*S3)(nil)
