package medialib

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/backend/ephemeral"
	"github.com/henrlaas/medialib/backend/sqlite"
	"github.com/henrlaas/medialib/data"
	"github.com/henrlaas/medialib/log"
)

type TestLibraryFactory func(tst *testing.T, opts ...LibraryOption) (*Library, error)

func GetTestLibraryFactories() map[string]TestLibraryFactory {
	return map[string]TestLibraryFactory{
		"ephemeral-dual": func(tst *testing.T, opts ...LibraryOption) (*Library, error) {
			storage := ephemeral.NewEphemeralBackend()

			return openTestLibrary(tst, storage, opts...)
		},
		"ephemeral-sqlite": func(tst *testing.T, opts ...LibraryOption) (*Library, error) {
			storage := ephemeral.NewEphemeralBackend()
			metadata, err := sqlite.NewSQLiteBackend(":memory:")
			if err != nil {
				return nil, err
			}

			return openTestLibrary(tst, storage, append(opts, WithMetadata(metadata))...)
		},
	}
}

func openTestLibrary(tst *testing.T, store backend.ObjectStorageBackend, opts ...LibraryOption) (*Library, error) {
	defaults := []LibraryOption{
		WithLogger(log.Discard()),
		WithRetryDelay(0),
	}

	lib, err := New(store, append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := lib.Open(tst.Context()); err != nil {
		return nil, err
	}

	tst.Cleanup(func() {
		lib.Close(context.Background())
	})
	return lib, nil
}

// newEphemeralLibrary returns a library over a single ephemeral backend.
func newEphemeralLibrary(t *testing.T, opts ...LibraryOption) (*Library, *ephemeral.EphemeralBackend) {
	t.Helper()

	storage := ephemeral.NewEphemeralBackend()
	lib, err := openTestLibrary(t, storage, opts...)
	if err != nil {
		t.Fatalf("Failed to create library: %v", err)
	}
	return lib, storage
}

func mustCreateFolder(t *testing.T, lib *Library, bucket data.BucketContext, parent, name string) {
	t.Helper()

	if _, err := lib.CreateFolder(t.Context(), bucket, data.MustParsePath(parent), name); err != nil {
		t.Fatalf("Failed to create folder '%s' in '%s': %v", name, parent, err)
	}
}

func mustUpload(t *testing.T, lib *Library, bucket data.BucketContext, dir, name, content string, tags ...string) *data.FileEntry {
	t.Helper()

	entry, err := lib.Upload(t.Context(), bucket, data.MustParsePath(dir), &UploadFile{
		Name:       name,
		Reader:     bytes.NewReader([]byte(content)),
		Size:       int64(len(content)),
		Tags:       tags,
		UploadedBy: "uploader",
	})
	if err != nil {
		t.Fatalf("Failed to upload '%s' to '%s': %v", name, dir, err)
	}
	return entry
}

// storedKeys returns every object key of bucket in key order.
func storedKeys(t *testing.T, lib *Library, bucket data.BucketContext) []string {
	t.Helper()

	objects, err := lib.Store().ListObjects(t.Context(), bucket.String(), "", "")
	if err != nil {
		t.Fatalf("Failed to list objects: %v", err)
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	return keys
}

// faultyStore wraps an object store and fails selected calls.
type faultyStore struct {
	backend.ObjectStorageBackend

	mu         sync.Mutex
	failCopy   map[string]error
	failDelete map[string]error
	failLists  int
	lists      int
}

func newFaultyStore(inner backend.ObjectStorageBackend) *faultyStore {
	return &faultyStore{
		ObjectStorageBackend: inner,
		failCopy:             make(map[string]error),
		failDelete:           make(map[string]error),
	}
}

func (fs *faultyStore) ListObjects(ctx context.Context, bucket, prefix, delimiter string) ([]*data.StorageObject, error) {
	fs.mu.Lock()
	fs.lists++
	if fs.failLists > 0 {
		fs.failLists--
		fs.mu.Unlock()
		return nil, data.Unavailable(context.DeadlineExceeded, "list")
	}
	fs.mu.Unlock()

	return fs.ObjectStorageBackend.ListObjects(ctx, bucket, prefix, delimiter)
}

func (fs *faultyStore) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	fs.mu.Lock()
	err := fs.failCopy[srcKey]
	fs.mu.Unlock()

	if err != nil {
		return err
	}
	return fs.ObjectStorageBackend.CopyObject(ctx, bucket, srcKey, dstKey)
}

func (fs *faultyStore) DeleteObject(ctx context.Context, bucket, key string) error {
	fs.mu.Lock()
	err := fs.failDelete[key]
	fs.mu.Unlock()

	if err != nil {
		return err
	}
	return fs.ObjectStorageBackend.DeleteObject(ctx, bucket, key)
}

// faultyIndex wraps a metadata backend and fails metadata writes when set.
type faultyIndex struct {
	backend.MetadataBackend

	failUpsert error
}

func (fi *faultyIndex) UpsertMetadata(ctx context.Context, meta *data.MediaMetadata) error {
	if fi.failUpsert != nil {
		return fi.failUpsert
	}
	return fi.MetadataBackend.UpsertMetadata(ctx, meta)
}
