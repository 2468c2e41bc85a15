package backend_test

import (
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/backend/ephemeral"
	"github.com/henrlaas/medialib/backend/postgres"
	"github.com/henrlaas/medialib/backend/sqlite"
	"github.com/henrlaas/medialib/data"
)

// TestMetadataFactory creates a new metadata index instance for testing.
type TestMetadataFactory func(t *testing.T) (backend.MetadataBackend, error)

// GetTestMetadataFactories returns all metadata index implementations to test.
func GetTestMetadataFactories() map[string]TestMetadataFactory {
	factories := map[string]TestMetadataFactory{
		"ephemeral": func(t *testing.T) (backend.MetadataBackend, error) {
			return ephemeral.NewEphemeralBackend(), nil
		},
		"sqlite": func(t *testing.T) (backend.MetadataBackend, error) {
			return sqlite.NewSQLiteBackend(":memory:")
		},
	}

	if connString := os.Getenv("MEDIALIB_POSTGRES_URL"); connString != "" {
		factories["postgres"] = func(t *testing.T) (backend.MetadataBackend, error) {
			return postgres.NewPostgresBackend(t.Context(), connString)
		}
	}

	return factories
}

// TestObjectStorageFactory creates a new object store instance for testing.
type TestObjectStorageFactory func(t *testing.T) (backend.ObjectStorageBackend, error)

// GetTestObjectStorageFactories returns all object store implementations to test.
func GetTestObjectStorageFactories() map[string]TestObjectStorageFactory {
	return map[string]TestObjectStorageFactory{
		"ephemeral": func(t *testing.T) (backend.ObjectStorageBackend, error) {
			return ephemeral.NewEphemeralBackend(), nil
		},
	}
}

func openMetadata(tst *testing.T, factory TestMetadataFactory) backend.MetadataBackend {
	tst.Helper()

	mb, err := factory(tst)
	if err != nil {
		tst.Fatalf("Backend init failed: %v", err)
	}
	if err := mb.Open(tst.Context()); err != nil {
		tst.Fatalf("Backend open failed: %v", err)
	}
	tst.Cleanup(func() {
		mb.Close(tst.Context())
	})

	return mb
}

func TestAllMetadataBackends_Upsert(t *testing.T) {
	for name, factory := range GetTestMetadataFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			mb := openMetadata(tst, factory)

			meta := data.NewMediaMetadata("internal", "Docs/a.png", "a.png", "image/png", 42, []string{"logo", "brand"}, "user-1")
			if err := mb.UpsertMetadata(ctx, meta); err != nil {
				tst.Fatalf("UpsertMetadata failed: %v", err)
			}
			defer mb.DeleteMetadata(ctx, "internal", "Docs/a.png")

			got, err := mb.GetMetadata(ctx, "internal", "Docs/a.png")
			if err != nil {
				tst.Fatalf("GetMetadata failed: %v", err)
			}
			if got.ID != meta.ID || got.FileSize != 42 || got.UploadedBy != "user-1" {
				tst.Errorf("Unexpected metadata %+v", got)
			}
			if !slices.Equal(got.Tags, []string{"brand", "logo"}) {
				tst.Errorf("Expected tags [brand logo], got %v", got.Tags)
			}

			// Re-upload replaces the row
			replaced := data.NewMediaMetadata("internal", "Docs/a.png", "a-v2.png", "image/png", 7, nil, "user-2")
			if err := mb.UpsertMetadata(ctx, replaced); err != nil {
				tst.Fatalf("UpsertMetadata failed: %v", err)
			}

			got, err = mb.GetMetadata(ctx, "internal", "Docs/a.png")
			if err != nil {
				tst.Fatalf("GetMetadata failed: %v", err)
			}
			if got.ID != replaced.ID || got.OriginalName != "a-v2.png" || len(got.Tags) != 0 {
				tst.Errorf("Expected replaced metadata, got %+v", got)
			}

			// Bucket contexts are isolated
			if _, err := mb.GetMetadata(ctx, "company", "Docs/a.png"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist in other bucket, got %v", err)
			}
		})
	}
}

func TestAllMetadataBackends_DeleteIsIdempotent(t *testing.T) {
	for name, factory := range GetTestMetadataFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			mb := openMetadata(tst, factory)

			if err := mb.DeleteMetadata(ctx, "internal", "missing.png"); err != nil {
				tst.Errorf("DeleteMetadata of missing row failed: %v", err)
			}
			if err := mb.DeleteFavorite(ctx, "user-1", "internal", "missing.png"); err != nil {
				tst.Errorf("DeleteFavorite of missing row failed: %v", err)
			}
			if _, err := mb.GetMetadata(ctx, "internal", "missing.png"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist, got %v", err)
			}
		})
	}
}

func TestAllMetadataBackends_ListPrefix(t *testing.T) {
	for name, factory := range GetTestMetadataFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			mb := openMetadata(tst, factory)

			paths := []string{"foo", "foo/a.txt", "foo/sub/b.txt", "foobar/c.txt", "other.txt"}
			for _, path := range paths {
				meta := data.NewMediaMetadata("internal", path, data.BaseName(path), "text/plain", 1, nil, "user-1")
				if err := mb.UpsertMetadata(ctx, meta); err != nil {
					tst.Fatalf("UpsertMetadata failed: %v", err)
				}
				defer mb.DeleteMetadata(ctx, "internal", path)
			}

			rows, err := mb.ListMetadata(ctx, "internal", "foo")
			if err != nil {
				tst.Fatalf("ListMetadata failed: %v", err)
			}

			var got []string
			for _, row := range rows {
				got = append(got, row.FilePath)
			}
			want := []string{"foo", "foo/a.txt", "foo/sub/b.txt"}
			if !slices.Equal(got, want) {
				tst.Errorf("Expected %v, got %v", want, got)
			}

			all, err := mb.ListMetadata(ctx, "internal", "")
			if err != nil {
				tst.Fatalf("ListMetadata failed: %v", err)
			}
			if len(all) != len(paths) {
				tst.Errorf("Expected %d rows, got %d", len(paths), len(all))
			}
		})
	}
}

func TestAllMetadataBackends_Favorites(t *testing.T) {
	for name, factory := range GetTestMetadataFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			mb := openMetadata(tst, factory)

			for _, user := range []string{"user-1", "user-2"} {
				mark := &data.FavoriteMark{UserID: user, BucketID: "internal", FilePath: "Docs/a.png"}
				if err := mb.UpsertFavorite(ctx, mark); err != nil {
					tst.Fatalf("UpsertFavorite failed: %v", err)
				}
				// Upserting twice is a no-op
				if err := mb.UpsertFavorite(ctx, mark); err != nil {
					tst.Fatalf("UpsertFavorite failed: %v", err)
				}
			}

			marks, err := mb.ListFavorites(ctx, "user-1", "internal")
			if err != nil {
				tst.Fatalf("ListFavorites failed: %v", err)
			}
			if len(marks) != 1 || marks[0].FilePath != "Docs/a.png" {
				tst.Errorf("Expected single mark for Docs/a.png, got %v", marks)
			}

			if err := mb.DeleteFavorite(ctx, "user-1", "internal", "Docs/a.png"); err != nil {
				tst.Fatalf("DeleteFavorite failed: %v", err)
			}
			marks, err = mb.ListFavorites(ctx, "user-1", "internal")
			if err != nil {
				tst.Fatalf("ListFavorites failed: %v", err)
			}
			if len(marks) != 0 {
				tst.Errorf("Expected no marks for user-1, got %v", marks)
			}

			if err := mb.DeleteFavorites(ctx, "internal", "Docs/a.png"); err != nil {
				tst.Fatalf("DeleteFavorites failed: %v", err)
			}
			marks, err = mb.ListFavorites(ctx, "user-2", "internal")
			if err != nil {
				tst.Fatalf("ListFavorites failed: %v", err)
			}
			if len(marks) != 0 {
				tst.Errorf("Expected no marks for user-2 after cascade, got %v", marks)
			}
		})
	}
}

func favoritePaths(tst *testing.T, mb backend.MetadataBackend, user string) []string {
	tst.Helper()

	marks, err := mb.ListFavorites(tst.Context(), user, "internal")
	if err != nil {
		tst.Fatalf("ListFavorites failed: %v", err)
	}

	paths := make([]string, 0, len(marks))
	for _, mark := range marks {
		paths = append(paths, mark.FilePath)
	}
	return paths
}

func TestAllMetadataBackends_RenameMetadata(t *testing.T) {
	for name, factory := range GetTestMetadataFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			mb := openMetadata(tst, factory)

			meta := data.NewMediaMetadata("internal", "Reports/q1.pdf", "q1.pdf", "application/pdf", 9, []string{"finance"}, "user-1")
			if err := mb.UpsertMetadata(ctx, meta); err != nil {
				tst.Fatalf("UpsertMetadata failed: %v", err)
			}
			// A stale row at the destination is replaced
			stale := data.NewMediaMetadata("internal", "Reports/q2.pdf", "old.pdf", "application/pdf", 1, nil, "user-9")
			if err := mb.UpsertMetadata(ctx, stale); err != nil {
				tst.Fatalf("UpsertMetadata failed: %v", err)
			}
			for _, user := range []string{"user-1", "user-2"} {
				if err := mb.UpsertFavorite(ctx, &data.FavoriteMark{UserID: user, BucketID: "internal", FilePath: "Reports/q1.pdf"}); err != nil {
					tst.Fatalf("UpsertFavorite failed: %v", err)
				}
			}
			defer mb.DeleteMetadata(ctx, "internal", "Reports/q1.pdf")
			defer mb.DeleteMetadata(ctx, "internal", "Reports/q2.pdf")
			defer mb.DeleteFavorites(ctx, "internal", "Reports/q1.pdf")
			defer mb.DeleteFavorites(ctx, "internal", "Reports/q2.pdf")

			if err := mb.RenameMetadata(ctx, "internal", "Reports/q1.pdf", "Reports/q2.pdf"); err != nil {
				tst.Fatalf("RenameMetadata failed: %v", err)
			}

			got, err := mb.GetMetadata(ctx, "internal", "Reports/q2.pdf")
			if err != nil {
				tst.Fatalf("GetMetadata failed: %v", err)
			}
			if got.ID != meta.ID || got.OriginalName != "q1.pdf" || !slices.Equal(got.Tags, []string{"finance"}) {
				tst.Errorf("Expected the moved row with its id, got %+v", got)
			}
			if _, err := mb.GetMetadata(ctx, "internal", "Reports/q1.pdf"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist at the old path, got %v", err)
			}

			for _, user := range []string{"user-1", "user-2"} {
				if paths := favoritePaths(tst, mb, user); !slices.Equal(paths, []string{"Reports/q2.pdf"}) {
					tst.Errorf("Expected favorite of %s to follow the row, got %v", user, paths)
				}
			}

			// And back again, the id still travels with the row
			if err := mb.RenameMetadata(ctx, "internal", "Reports/q2.pdf", "Reports/q1.pdf"); err != nil {
				tst.Fatalf("RenameMetadata back failed: %v", err)
			}
			got, err = mb.GetMetadata(ctx, "internal", "Reports/q1.pdf")
			if err != nil {
				tst.Fatalf("GetMetadata failed: %v", err)
			}
			if got.ID != meta.ID {
				tst.Errorf("Expected id %s after round trip, got %s", meta.ID, got.ID)
			}

			// Renaming a path without a row or marks is a no-op
			if err := mb.RenameMetadata(ctx, "internal", "missing.pdf", "Reports/q1.pdf"); err != nil {
				tst.Errorf("RenameMetadata of missing row failed: %v", err)
			}
			if _, err := mb.GetMetadata(ctx, "internal", "Reports/q1.pdf"); err != nil {
				tst.Errorf("Expected the row to survive a no-op rename, got %v", err)
			}
		})
	}
}

func TestAllObjectStorageBackends_ListDelimiter(t *testing.T) {
	for name, factory := range GetTestObjectStorageFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()

			sb, err := factory(tst)
			if err != nil {
				tst.Fatalf("Backend init failed: %v", err)
			}
			if err := sb.Open(ctx); err != nil {
				tst.Fatalf("Backend open failed: %v", err)
			}
			defer sb.Close(ctx)

			for _, key := range []string{"Reports/q1.pdf", "Reports/2024/a.pdf", "top.txt", "Reportsx/b.txt"} {
				if _, err := sb.PutObject(ctx, "internal", key, strings.NewReader("x"), 1, ""); err != nil {
					tst.Fatalf("PutObject failed: %v", err)
				}
			}

			objects, err := sb.ListObjects(ctx, "internal", "Reports/", "/")
			if err != nil {
				tst.Fatalf("ListObjects failed: %v", err)
			}

			var keys []string
			for _, obj := range objects {
				keys = append(keys, obj.Key)
			}
			if !slices.Equal(keys, []string{"Reports/2024/", "Reports/q1.pdf"}) {
				tst.Errorf("Expected [Reports/2024/ Reports/q1.pdf], got %v", keys)
			}

			recursive, err := sb.ListObjects(ctx, "internal", "", "")
			if err != nil {
				tst.Fatalf("ListObjects failed: %v", err)
			}
			if len(recursive) != 4 {
				tst.Errorf("Expected 4 objects, got %d", len(recursive))
			}

			other, err := sb.ListObjects(ctx, "company", "", "")
			if err != nil {
				tst.Fatalf("ListObjects failed: %v", err)
			}
			if len(other) != 0 {
				tst.Errorf("Expected company bucket to be empty, got %d objects", len(other))
			}
		})
	}
}

func TestAllObjectStorageBackends_CopyDelete(t *testing.T) {
	for name, factory := range GetTestObjectStorageFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()

			sb, err := factory(tst)
			if err != nil {
				tst.Fatalf("Backend init failed: %v", err)
			}
			defer sb.Close(ctx)

			if _, err := sb.PutObject(ctx, "internal", "a.txt", strings.NewReader("hello"), 5, "text/plain"); err != nil {
				tst.Fatalf("PutObject failed: %v", err)
			}

			if err := sb.CopyObject(ctx, "internal", "a.txt", "b.txt"); err != nil {
				tst.Fatalf("CopyObject failed: %v", err)
			}

			head, err := sb.HeadObject(ctx, "internal", "b.txt")
			if err != nil {
				tst.Fatalf("HeadObject failed: %v", err)
			}
			if head.Size != 5 || head.ContentType != "text/plain" {
				tst.Errorf("Unexpected copied object %+v", head)
			}

			if err := sb.CopyObject(ctx, "internal", "missing.txt", "c.txt"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist for missing source, got %v", err)
			}

			if err := sb.DeleteObject(ctx, "internal", "a.txt"); err != nil {
				tst.Fatalf("DeleteObject failed: %v", err)
			}
			if err := sb.DeleteObject(ctx, "internal", "a.txt"); err != nil {
				tst.Errorf("DeleteObject of missing key failed: %v", err)
			}
			if _, err := sb.HeadObject(ctx, "internal", "a.txt"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist after delete, got %v", err)
			}
		})
	}
}
