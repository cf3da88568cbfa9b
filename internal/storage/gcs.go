package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/coursehub/apiserver/config"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSClient stores recordings in a Google Cloud Storage bucket.
type GCSClient struct {
	client    *storage.Client
	bucket    string
	projectID string
	baseURL   string
}

// NewGCSClient constructs a GCS client from config. Objects are linked
// under publicURL, or storage.googleapis.com when publicURL is empty.
func NewGCSClient(ctx context.Context, cfg config.GCSConfig, publicURL string) (*GCSClient, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GCSClient{
		client:    client,
		bucket:    cfg.Bucket,
		projectID: cfg.ProjectID,
		baseURL:   publicBase(publicURL, gcsPublicHost, cfg.Bucket),
	}, nil
}

// EnsureBucket creates the bucket with uniform access when it is missing.
func (g *GCSClient) EnsureBucket(ctx context.Context) error {
	_, err := g.client.Bucket(g.bucket).Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	if strings.TrimSpace(g.projectID) == "" {
		return errors.New("gcs project id is required to create bucket")
	}
	return g.client.Bucket(g.bucket).Create(ctx, g.projectID, &storage.BucketAttrs{
		UniformBucketLevelAccess: storage.UniformBucketLevelAccess{Enabled: true},
	})
}

// Write uploads a new object. Keys are never reused, so an existing object
// under key fails the upload instead of being replaced.
func (g *GCSClient) Write(ctx context.Context, key string, body io.Reader, size int64, attrs ObjectAttrs) error {
	object := g.client.Bucket(g.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	writer := object.NewWriter(ctx)
	writer.ContentType = attrs.ContentType
	writer.ContentDisposition = attrs.ContentDisposition
	writer.Metadata = attrs.Metadata
	if size > 0 && size <= googleapi.DefaultUploadChunkSize {
		// Small recordings go up in a single request.
		writer.ChunkSize = 0
	}
	if _, err := io.Copy(writer, body); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

// Remove deletes an object. Missing objects are not an error.
func (g *GCSClient) Remove(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// ObjectURL is the public address of key.
func (g *GCSClient) ObjectURL(key string) string {
	return objectURL(g.baseURL, key)
}

// Close closes the underlying GCS client.
func (g *GCSClient) Close() error {
	return g.client.Close()
}
