package medialib

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/henrlaas/medialib/data"
)

// ToggleFavorite sets the favorite state of path for userID. Both directions are idempotent.
// Favorites never take the prefix guard, a mark racing a delete is removed by the
// delete cascade or the next sweep.
func (l *Library) ToggleFavorite(ctx context.Context, userID string, bucket data.BucketContext, path data.VirtualPath, desired bool) (err error) {
	start := time.Now()
	defer func() { l.metrics.observe("favorite", err, start) }()

	if err := l.checkOpen(); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: empty user id", data.ErrInvalidUser)
	}
	if path.IsRoot() {
		return fmt.Errorf("%w: cannot favorite the bucket root", data.ErrInvalidPath)
	}

	key, err := data.ToKey(bucket, path)
	if err != nil {
		return err
	}

	if !desired {
		return l.index.DeleteFavorite(ctx, userID, bucket.String(), key)
	}

	if _, err := l.store.HeadObject(ctx, bucket.String(), key); err != nil {
		return err
	}

	return l.index.UpsertFavorite(ctx, &data.FavoriteMark{
		UserID:    userID,
		BucketID:  bucket.String(),
		FilePath:  key,
		CreatedAt: time.Now().UTC(),
	})
}

// Favorites returns the file paths userID marked within bucket.
func (l *Library) Favorites(ctx context.Context, userID string, bucket data.BucketContext) ([]string, error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	if err := bucket.Validate(); err != nil {
		return nil, err
	}

	var marks []*data.FavoriteMark
	err := l.retryRead(ctx, "favorites", func(ctx context.Context) error {
		var err error
		marks, err = l.index.ListFavorites(ctx, userID, bucket.String())
		return err
	})
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(marks))
	for _, mark := range marks {
		paths = append(paths, mark.FilePath)
	}
	return paths, nil
}
