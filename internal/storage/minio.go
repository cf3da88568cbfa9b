package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/coursehub/apiserver/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// streamPartSize bounds the memory used for uploads of unknown size.
const streamPartSize = 16 << 20

// MinioClient stores recordings in a MinIO bucket that allows anonymous
// reads under lessons/.
type MinioClient struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioClient constructs a MinIO client from config. Objects are linked
// under publicURL, or the endpoint itself when publicURL is empty.
func NewMinioClient(cfg config.MinioConfig, publicURL string) (*MinioClient, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("minio access key and secret key are required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	scheme := "http://"
	if cfg.UseSSL {
		scheme = "https://"
	}
	return &MinioClient{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBase(publicURL, scheme+cfg.Endpoint, cfg.Bucket),
	}, nil
}

// EnsureBucket creates the bucket if needed and opens lessons/ for
// anonymous reads so recording URLs resolve.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
	}
	policy, err := recordingReadPolicy(m.bucket)
	if err != nil {
		return err
	}
	return m.client.SetBucketPolicy(ctx, m.bucket, policy)
}

// Write uploads an object. Unknown sizes are streamed in fixed parts.
func (m *MinioClient) Write(ctx context.Context, key string, body io.Reader, size int64, attrs ObjectAttrs) error {
	opts := minio.PutObjectOptions{
		ContentType:        attrs.ContentType,
		ContentDisposition: attrs.ContentDisposition,
		UserMetadata:       attrs.Metadata,
	}
	if size <= 0 {
		size = -1
		opts.PartSize = streamPartSize
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, body, size, opts)
	return err
}

// Remove deletes an object. Missing objects are not an error.
func (m *MinioClient) Remove(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// ObjectURL is the public address of key.
func (m *MinioClient) ObjectURL(key string) string {
	return objectURL(m.baseURL, key)
}

// Close is a no-op; the MinIO client holds no resources that need release.
func (m *MinioClient) Close() error {
	return nil
}

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

func recordingReadPolicy(bucket string) (string, error) {
	policy := bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/lessons/*"},
		}},
	}
	data, err := json.Marshal(policy)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
