package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive stores rendered reports and hands back a link to them.
type Archive interface {
	Put(ctx context.Context, name string, content []byte) (url string, err error)
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// LinkTTL is the lifetime of presigned download links (default 1h).
	LinkTTL time.Duration
}

// Enabled reports whether enough is configured to build an S3Archive.
func (c S3Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.Bucket) != ""
}

// S3Archive uploads reports to an S3-compatible bucket (MinIO, AWS).
type S3Archive struct {
	client   *minio.Client
	bucket   string
	region   string
	ttl      time.Duration
	initOnce sync.Once
	initErr  error
}

func NewS3Archive(cfg S3Config) (*S3Archive, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("report archive: endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("report archive: access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("report archive: bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	ttl := cfg.LinkTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Archive{client: client, bucket: bucket, region: region, ttl: ttl}, nil
}

func (a *S3Archive) ensureBucket(ctx context.Context) error {
	a.initOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.initErr = err
			return
		}
		if exists {
			return
		}
		a.initErr = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region})
	})
	return a.initErr
}

// Put uploads content under reports/<name> and returns a presigned GET link.
func (a *S3Archive) Put(ctx context.Context, name string, content []byte) (string, error) {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return "", fmt.Errorf("report archive: object name is required")
	}
	if err := a.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}
	key := "reports/" + name
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, a.ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}
