package medialib

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/henrlaas/medialib/data"
	"golang.org/x/sync/errgroup"
)

// ListDirectory returns the merged view of the immediate children of path.
// Objects, metadata rows and the favorites of userID are read concurrently and
// joined by key. Missing or dangling metadata degrades the listing with warnings.
// A non-root path without any object below it fails with ErrNotExist.
func (l *Library) ListDirectory(ctx context.Context, userID string, bucket data.BucketContext, path data.VirtualPath) (listing *data.DirectoryListing, err error) {
	start := time.Now()
	defer func() { l.metrics.observe("list", err, start) }()

	if err := l.checkOpen(); err != nil {
		return nil, err
	}

	key, err := data.ToKey(bucket, path)
	if err != nil {
		return nil, err
	}

	var objects []*data.StorageObject
	var metas []*data.MediaMetadata
	var marks []*data.FavoriteMark

	err = l.retryRead(ctx, "list", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			var err error
			objects, err = l.store.ListObjects(gctx, bucket.String(), data.DirPrefix(key), data.Separator)
			return err
		})
		g.Go(func() error {
			var err error
			metas, err = l.index.ListMetadata(gctx, bucket.String(), key)
			return err
		})
		if userID != "" {
			g.Go(func() error {
				var err error
				marks, err = l.index.ListFavorites(gctx, userID, bucket.String())
				return err
			})
		}

		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	if key != "" && len(objects) == 0 {
		return nil, data.ErrNotExist
	}

	listing = l.merge(bucket, key, objects, metas, marks)
	if listing.Inconsistent() {
		l.log.Debug("Listing of '%s:%s' carries %d warnings", bucket, key, len(listing.Warnings))
	}

	return listing, nil
}

// merge joins the delimiter listing of key with metadata rows and favorite marks.
func (l *Library) merge(bucket data.BucketContext, key string, objects []*data.StorageObject, metas []*data.MediaMetadata, marks []*data.FavoriteMark) *data.DirectoryListing {
	listing := &data.DirectoryListing{
		Bucket:  bucket,
		Path:    key,
		Folders: make([]data.FolderEntry, 0),
		Files:   make([]data.FileEntry, 0),
	}

	metaByPath := make(map[string]*data.MediaMetadata, len(metas))
	for _, meta := range metas {
		if data.ParentKey(meta.FilePath) == key && meta.FilePath != key {
			metaByPath[meta.FilePath] = meta
		}
	}

	favorited := make(map[string]struct{}, len(marks))
	for _, mark := range marks {
		favorited[mark.FilePath] = struct{}{}
	}

	seen := make(map[string]struct{}, len(objects))
	for _, obj := range objects {
		if obj.IsPrefix {
			folderKey := strings.TrimSuffix(obj.Key, data.Separator)
			listing.Folders = append(listing.Folders, data.FolderEntry{
				Name: data.BaseName(folderKey),
				Path: folderKey,
			})
			continue
		}

		seen[obj.Key] = struct{}{}
		if data.IsPlaceholder(obj.Key) {
			continue
		}

		entry := data.FileEntry{
			Name:        obj.Name(),
			Path:        obj.Key,
			Size:        obj.Size,
			ContentType: obj.ContentType,
			CreatedAt:   obj.CreatedAt,
			Tags:        make([]string, 0),
			URL:         l.publicURL(bucket, obj.Key),
		}
		if entry.ContentType == "" {
			entry.ContentType = data.GetMIMEType(obj.Key)
		}

		if meta, exists := metaByPath[obj.Key]; exists {
			entry.OriginalName = meta.OriginalName
			entry.Tags = slices.Clone(meta.Tags)
			entry.UploadedBy = meta.UploadedBy
			if meta.MimeType != "" {
				entry.ContentType = meta.MimeType
			}
			if entry.CreatedAt.IsZero() {
				entry.CreatedAt = meta.UploadDate
			}
		} else {
			entry.Degraded = true
			listing.Warnings = append(listing.Warnings, data.Inconsistency{
				Kind: data.MissingMetadata,
				Key:  obj.Key,
			})
		}

		_, entry.Favorited = favorited[obj.Key]
		listing.Files = append(listing.Files, entry)
	}

	for path := range metaByPath {
		if _, exists := seen[path]; !exists {
			listing.Warnings = append(listing.Warnings, data.Inconsistency{
				Kind: data.DanglingMetadata,
				Key:  path,
			})
		}
	}

	slices.SortFunc(listing.Folders, func(a, b data.FolderEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	slices.SortFunc(listing.Files, func(a, b data.FileEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	slices.SortFunc(listing.Warnings, func(a, b data.Inconsistency) int {
		return strings.Compare(a.Key, b.Key)
	})

	return listing
}
