package backend

import (
	"context"

	"github.com/henrlaas/medialib/data"
)

// MetadataBackend is the relational index kept next to the object store.
// Rows are keyed by (bucket, file path) and carry a record id unique across all rows.
// Missing rows are reported as data.ErrNotExist and every delete is idempotent.
type MetadataBackend interface {
	Backend

	// UpsertMetadata inserts the row or replaces the existing row for the same key.
	UpsertMetadata(ctx context.Context, meta *data.MediaMetadata) error

	GetMetadata(ctx context.Context, bucket, filePath string) (*data.MediaMetadata, error)

	DeleteMetadata(ctx context.Context, bucket, filePath string) error

	// RenameMetadata moves the row and the favorite marks of srcPath to dstPath, keeping the
	// record id. A row already stored at dstPath is replaced, marks already at dstPath are kept.
	// Moving a path without a row or marks is a no-op.
	RenameMetadata(ctx context.Context, bucket, srcPath, dstPath string) error

	// ListMetadata returns every row equal to or below prefix, ordered by file path.
	ListMetadata(ctx context.Context, bucket, prefix string) ([]*data.MediaMetadata, error)

	UpsertFavorite(ctx context.Context, mark *data.FavoriteMark) error

	DeleteFavorite(ctx context.Context, userID, bucket, filePath string) error

	// ListFavorites returns all marks of one user within a bucket.
	ListFavorites(ctx context.Context, userID, bucket string) ([]*data.FavoriteMark, error)

	// DeleteFavorites removes the marks of all users for the given file.
	DeleteFavorites(ctx context.Context, bucket, filePath string) error
}
