package ephemeral

import (
	"context"
	"sync"

	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/data"
	"github.com/tidwall/btree"
)

// EphemeralBackend keeps objects, metadata rows and favorite marks in memory.
// It serves both as object store and metadata index, which makes it the default
// backend for tests and local development.
type EphemeralBackend struct {
	mu sync.RWMutex

	objects   *btree.Map[string, *ephemeralObject]
	metadata  *btree.Map[string, *data.MediaMetadata]
	favorites *btree.Map[string, *data.FavoriteMark]
}

type ephemeralObject struct {
	info    data.StorageObject
	content []byte
}

func NewEphemeralBackend() *EphemeralBackend {
	return &EphemeralBackend{
		objects:   btree.NewMap[string, *ephemeralObject](0),
		metadata:  btree.NewMap[string, *data.MediaMetadata](0),
		favorites: btree.NewMap[string, *data.FavoriteMark](0),
	}
}

// Name returns the identifier name defined for this backend
func (*EphemeralBackend) Name() string {
	return "ephemeral"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (eb *EphemeralBackend) Open(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	// No initialization needed - backend is ready to use
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (eb *EphemeralBackend) Close(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.objects.Clear()
	eb.metadata.Clear()
	eb.favorites.Clear()

	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (eb *EphemeralBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityMetadata,
			backend.CapabilityDelimiter,
		},
		MaxObjectSize: 64 << 20, // 64 MB
	}
}

// scanPrefix walks all entries of m whose key starts with prefix, in key order.
func scanPrefix[V any](m *btree.Map[string, V], prefix string, iter func(key string, value V) bool) {
	m.Ascend(prefix, func(key string, value V) bool {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			return false
		}
		return iter(key, value)
	})
}
