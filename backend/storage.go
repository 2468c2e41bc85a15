package backend

import (
	"context"
	"io"

	"github.com/henrlaas/medialib/data"
)

// ObjectStorageBackend is a flat key-addressed blob store partitioned by bucket.
// Missing keys are reported as data.ErrNotExist, transport failures wrap data.ErrStoreUnavailable.
type ObjectStorageBackend interface {
	Backend

	// ListObjects returns all objects whose key starts with prefix.
	// With a non-empty delimiter only immediate children are returned and deeper keys
	// are collapsed into common prefix entries.
	ListObjects(ctx context.Context, bucket, prefix, delimiter string) ([]*data.StorageObject, error)

	HeadObject(ctx context.Context, bucket, key string) (*data.StorageObject, error)

	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) (*data.StorageObject, error)

	// CopyObject duplicates src to dst within the same bucket, overwriting dst.
	CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error

	// DeleteObject removes key. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, bucket, key string) error
}

// PublicURLBackend is implemented by object stores announcing CapabilityPublicURL.
type PublicURLBackend interface {
	PublicURL(bucket, key string) string
}
