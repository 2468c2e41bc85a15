package ephemeral

import (
	"context"
	"time"

	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/data"
)

// favoriteKey orders marks by file so that all users of one file are adjacent.
func favoriteKey(bucket, filePath, userID string) string {
	return backend.NamespacedKey(bucket, filePath) + "\x00" + userID
}

func (eb *EphemeralBackend) UpsertMetadata(ctx context.Context, meta *data.MediaMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	clone := meta.Clone()
	if clone.UploadDate.IsZero() {
		clone.UploadDate = time.Now().UTC()
	}

	eb.metadata.Set(backend.NamespacedKey(meta.BucketID, meta.FilePath), clone)
	return nil
}

func (eb *EphemeralBackend) GetMetadata(ctx context.Context, bucket, filePath string) (*data.MediaMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	meta, exists := eb.metadata.Get(backend.NamespacedKey(bucket, filePath))
	if !exists {
		return nil, data.ErrNotExist
	}

	return meta.Clone(), nil
}

func (eb *EphemeralBackend) DeleteMetadata(ctx context.Context, bucket, filePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.metadata.Delete(backend.NamespacedKey(bucket, filePath))
	return nil
}

func (eb *EphemeralBackend) ListMetadata(ctx context.Context, bucket, prefix string) ([]*data.MediaMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	var result []*data.MediaMetadata
	scanPrefix(eb.metadata, backend.NamespacedKey(bucket, prefix), func(_ string, meta *data.MediaMetadata) bool {
		if data.IsPrefixOf(prefix, meta.FilePath) {
			result = append(result, meta.Clone())
		}
		return true
	})

	return result, nil
}

func (eb *EphemeralBackend) UpsertFavorite(ctx context.Context, mark *data.FavoriteMark) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	key := favoriteKey(mark.BucketID, mark.FilePath, mark.UserID)
	if _, exists := eb.favorites.Get(key); exists {
		return nil
	}

	clone := *mark
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now().UTC()
	}

	eb.favorites.Set(key, &clone)
	return nil
}

func (eb *EphemeralBackend) DeleteFavorite(ctx context.Context, userID, bucket, filePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.favorites.Delete(favoriteKey(bucket, filePath, userID))
	return nil
}

func (eb *EphemeralBackend) ListFavorites(ctx context.Context, userID, bucket string) ([]*data.FavoriteMark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	var result []*data.FavoriteMark
	scanPrefix(eb.favorites, backend.NamespacedKey(bucket, ""), func(_ string, mark *data.FavoriteMark) bool {
		if mark.UserID == userID {
			clone := *mark
			result = append(result, &clone)
		}
		return true
	})

	return result, nil
}

func (eb *EphemeralBackend) DeleteFavorites(ctx context.Context, bucket, filePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	var keys []string
	scanPrefix(eb.favorites, favoriteKey(bucket, filePath, ""), func(key string, _ *data.FavoriteMark) bool {
		keys = append(keys, key)
		return true
	})

	for _, key := range keys {
		eb.favorites.Delete(key)
	}
	return nil
}

func (eb *EphemeralBackend) RenameMetadata(ctx context.Context, bucket, srcPath, dstPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	srcKey := backend.NamespacedKey(bucket, srcPath)
	if meta, exists := eb.metadata.Get(srcKey); exists {
		moved := meta.Clone()
		moved.FilePath = dstPath
		eb.metadata.Set(backend.NamespacedKey(bucket, dstPath), moved)
		eb.metadata.Delete(srcKey)
	}

	var marks []*data.FavoriteMark
	scanPrefix(eb.favorites, favoriteKey(bucket, srcPath, ""), func(_ string, mark *data.FavoriteMark) bool {
		marks = append(marks, mark)
		return true
	})

	for _, mark := range marks {
		dstKey := favoriteKey(bucket, dstPath, mark.UserID)
		if _, exists := eb.favorites.Get(dstKey); !exists {
			moved := *mark
			moved.FilePath = dstPath
			eb.favorites.Set(dstKey, &moved)
		}
		eb.favorites.Delete(favoriteKey(bucket, srcPath, mark.UserID))
	}

	return nil
}
