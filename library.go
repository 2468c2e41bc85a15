package medialib

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/data"
	"github.com/henrlaas/medialib/log"
)

// Library is the media library over one object store and one metadata index.
// All operations are safe for concurrent use. The library keeps no cache, every
// listing is rebuilt from the backends.
type Library struct {
	mu     sync.RWMutex
	closed bool

	store         backend.ObjectStorageBackend
	index         backend.MetadataBackend
	isDualBackend bool

	options *LibraryOptions
	log     *log.Logger
	guard   *prefixGuard
	metrics *libraryMetrics
}

func New(store backend.ObjectStorageBackend, opts ...LibraryOption) (*Library, error) {
	if store == nil {
		return nil, fmt.Errorf("object storage backend must not be nil")
	}

	options := newDefaultLibraryOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("medialib", options.LogLevel, options.LogFile, options.NoTerminalLog)
	}

	lib := &Library{
		store:   store,
		options: options,
		log:     logger,
		guard:   newPrefixGuard(),
		metrics: newLibraryMetrics(options.Registerer),
	}

	caps := store.GetCapabilities()
	if !caps.Contains(backend.CapabilityObjectStorage) {
		return nil, fmt.Errorf("backend '%s' does not provide object storage: %w", store.Name(), data.ErrBackendUnsupported)
	}

	// Perform capability check for the metadata index
	if options.Metadata != nil {
		if !options.Metadata.GetCapabilities().Contains(backend.CapabilityMetadata) {
			return nil, fmt.Errorf("backend '%s' does not provide metadata: %w", options.Metadata.Name(), data.ErrBackendUnsupported)
		}
		lib.index = options.Metadata
	} else if options.Auto && caps.Contains(backend.CapabilityMetadata) {
		index, ok := store.(backend.MetadataBackend)
		if !ok {
			return nil, fmt.Errorf("failed to use '%s' as metadata backend: %w", store.Name(), data.ErrBackendIncompatible)
		}
		lib.index = index
		lib.isDualBackend = true
	} else {
		return nil, fmt.Errorf("no metadata backend defined for '%s': %w", store.Name(), data.ErrBackendUnsupported)
	}

	return lib, nil
}

// Open opens the object store and, unless shared, the metadata index.
func (l *Library) Open(ctx context.Context) error {
	if err := l.store.Open(ctx); err != nil {
		return fmt.Errorf("failed to open backend '%s': %w", l.store.Name(), err)
	}

	if !l.isDualBackend {
		if err := l.index.Open(ctx); err != nil {
			l.store.Close(ctx)
			return fmt.Errorf("failed to open backend '%s': %w", l.index.Name(), err)
		}
	}

	l.log.Info("Opened library with object storage '%s' and metadata '%s'", l.store.Name(), l.index.Name())
	return nil
}

// Close closes all backends. Operations after Close fail with ErrClosed.
func (l *Library) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	errs := data.Errors{}
	errs.Add(l.store.Close(ctx))
	if !l.isDualBackend {
		errs.Add(l.index.Close(ctx))
	}

	return errs.Errors()
}

// Store returns the object storage backend.
func (l *Library) Store() backend.ObjectStorageBackend {
	return l.store
}

// Index returns the metadata backend.
func (l *Library) Index() backend.MetadataBackend {
	return l.index
}

func (l *Library) checkOpen() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return data.ErrClosed
	}
	return nil
}

// publicURL returns the object URL when the store can produce one.
func (l *Library) publicURL(bucket data.BucketContext, key string) string {
	if !l.store.GetCapabilities().Contains(backend.CapabilityPublicURL) {
		return ""
	}

	if pub, ok := l.store.(backend.PublicURLBackend); ok {
		return pub.PublicURL(bucket.String(), key)
	}
	return ""
}

// retryRead runs fn and repeats it once if it failed with ErrStoreUnavailable.
// Only read-only work may be passed here.
func (l *Library) retryRead(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || !errors.Is(err, data.ErrStoreUnavailable) {
		return err
	}

	l.log.Warn("Retrying %s after transport failure: %v", op, err)

	if l.options.RetryDelay > 0 {
		timer := time.NewTimer(l.options.RetryDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fn(ctx)
}

// exists reports whether an object is stored at key or below key.
func (l *Library) exists(ctx context.Context, bucket data.BucketContext, key string) (bool, error) {
	if key != "" {
		_, err := l.store.HeadObject(ctx, bucket.String(), key)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, data.ErrNotExist) {
			return false, err
		}
	}

	children, err := l.store.ListObjects(ctx, bucket.String(), data.DirPrefix(key), data.Separator)
	if err != nil {
		return false, err
	}
	return len(children) > 0, nil
}

// enumerate takes the snapshot of every object equal to or below key.
func (l *Library) enumerate(ctx context.Context, bucket data.BucketContext, key string) ([]*data.StorageObject, error) {
	objects, err := l.store.ListObjects(ctx, bucket.String(), key, "")
	if err != nil {
		return nil, err
	}

	result := make([]*data.StorageObject, 0, len(objects))
	for _, obj := range objects {
		if data.IsPrefixOf(key, obj.Key) {
			result = append(result, obj)
		}
	}
	return result, nil
}
