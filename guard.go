package medialib

import (
	"fmt"
	"sync"

	"github.com/henrlaas/medialib/data"
)

// prefixGuard admits at most one mutation per overlapping key prefix within a bucket.
// It only orders mutations issued through the same Library.
type prefixGuard struct {
	mu     sync.Mutex
	next   uint64
	active map[data.BucketContext]map[uint64][]string
}

func newPrefixGuard() *prefixGuard {
	return &prefixGuard{
		active: make(map[data.BucketContext]map[uint64][]string),
	}
}

// acquire claims all keys at once. It fails with ErrConflictingOperation if any key
// overlaps a key held by another in-flight mutation. The returned release must be called
// exactly once.
func (pg *prefixGuard) acquire(bucket data.BucketContext, keys ...string) (func(), error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	leases := pg.active[bucket]
	for _, held := range leases {
		for _, heldKey := range held {
			for _, key := range keys {
				if data.Overlaps(heldKey, key) {
					return nil, fmt.Errorf("%w: '%s' overlaps '%s'", data.ErrConflictingOperation, key, heldKey)
				}
			}
		}
	}

	if leases == nil {
		leases = make(map[uint64][]string)
		pg.active[bucket] = leases
	}

	pg.next++
	id := pg.next
	leases[id] = keys

	var once sync.Once
	return func() {
		once.Do(func() {
			pg.mu.Lock()
			defer pg.mu.Unlock()

			delete(pg.active[bucket], id)
			if len(pg.active[bucket]) == 0 {
				delete(pg.active, bucket)
			}
		})
	}, nil
}

// inFlight returns the number of mutations currently holding keys in bucket.
func (pg *prefixGuard) inFlight(bucket data.BucketContext) int {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	return len(pg.active[bucket])
}
