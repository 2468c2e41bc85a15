package s3

import (
	"context"
	"fmt"
	"sync"

	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/data"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Backend stores objects in an S3 compatible service through minio-go.
// Each bucket context is mapped onto a physical bucket, by default of the same name.
type S3Backend struct {
	mu sync.RWMutex

	client  *minio.Client
	buckets map[string]string
	create  bool
}

type S3BackendOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string

	// Buckets maps bucket contexts onto physical bucket names.
	Buckets map[string]string
	// CreateBuckets creates missing physical buckets when opening the backend.
	CreateBuckets bool
}

func NewS3Backend(opts S3BackendOptions) (*S3Backend, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]string)
	for _, bucket := range data.AllBuckets() {
		buckets[bucket.String()] = bucket.String()
	}
	for name, physical := range opts.Buckets {
		if physical != "" {
			buckets[name] = physical
		}
	}

	return &S3Backend{
		client:  client,
		buckets: buckets,
		create:  opts.CreateBuckets,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*S3Backend) Name() string {
	return "s3"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (sb *S3Backend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	for _, physical := range sb.buckets {
		exists, err := sb.client.BucketExists(ctx, physical)
		if err != nil {
			return data.Unavailable(err, "bucket exists")
		}

		if exists {
			continue
		}
		if !sb.create {
			return fmt.Errorf("bucket '%s' does not exist: %w", physical, data.ErrBackendIncompatible)
		}

		if err := sb.client.MakeBucket(ctx, physical, minio.MakeBucketOptions{}); err != nil {
			return data.Unavailable(err, "make bucket")
		}
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *S3Backend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *S3Backend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityDelimiter,
			backend.CapabilityPublicURL,
		},
	}
}

func (sb *S3Backend) physical(bucket string) string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if physical, exists := sb.buckets[bucket]; exists {
		return physical
	}
	return bucket
}
