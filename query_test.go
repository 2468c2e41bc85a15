package medialib

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/henrlaas/medialib/data"
)

func newTestListing() *data.DirectoryListing {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return &data.DirectoryListing{
		Bucket: data.BucketInternal,
		Folders: []data.FolderEntry{
			{Name: "Archive", Path: "Archive"},
			{Name: "photos", Path: "photos"},
		},
		Files: []data.FileEntry{
			{Name: "b.png", Path: "b.png", Size: 300, ContentType: data.ContentTypeImagePNG, CreatedAt: base.Add(2 * time.Hour), Favorited: true},
			{Name: "A.pdf", Path: "A.pdf", Size: 100, ContentType: data.ContentTypeApplicationPDF, CreatedAt: base.Add(1 * time.Hour)},
			{Name: "clip.mp4", Path: "clip.mp4", Size: 200, ContentType: data.ContentTypeVideoMP4, CreatedAt: base.Add(3 * time.Hour)},
			{Name: "photo.jpg", Path: "photo.jpg", Size: 100, ContentType: data.ContentTypeImageJPEG, CreatedAt: base},
		},
	}
}

func itemNames(items []data.Item) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name())
	}
	return names
}

func TestApply_SortByName(t *testing.T) {
	result := Apply(newTestListing(), QueryOptions{})

	want := []string{"A.pdf", "Archive", "b.png", "clip.mp4", "photo.jpg", "photos"}
	if got := itemNames(result.Items); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if result.TotalCount != 6 || result.TotalPages != 1 || result.Page != 1 {
		t.Errorf("Unexpected counts: %+v", result)
	}

	result = Apply(newTestListing(), QueryOptions{SortDir: SortDesc})
	slices.Reverse(want)
	if got := itemNames(result.Items); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestApply_SortBySize(t *testing.T) {
	result := Apply(newTestListing(), QueryOptions{SortBy: SortBySize})

	// Folders count as size 0, equal sizes fall back to name
	want := []string{"Archive", "photos", "A.pdf", "photo.jpg", "clip.mp4", "b.png"}
	if got := itemNames(result.Items); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	// Only the primary key is reversed
	result = Apply(newTestListing(), QueryOptions{SortBy: SortBySize, SortDir: SortDesc})
	want = []string{"b.png", "clip.mp4", "A.pdf", "photo.jpg", "Archive", "photos"}
	if got := itemNames(result.Items); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestApply_SortByModified(t *testing.T) {
	result := Apply(newTestListing(), QueryOptions{SortBy: SortByModified, SortDir: SortDesc})

	want := []string{"clip.mp4", "b.png", "A.pdf", "photo.jpg", "Archive", "photos"}
	if got := itemNames(result.Items); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestApply_SortByType(t *testing.T) {
	result := Apply(newTestListing(), QueryOptions{SortBy: SortByType})

	want := []string{"A.pdf", "Archive", "photos", "photo.jpg", "b.png", "clip.mp4"}
	if got := itemNames(result.Items); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestApply_Filters(t *testing.T) {
	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{
			name: "search matches folders and files",
			opts: QueryOptions{Search: "PHOTO"},
			want: []string{"photo.jpg", "photos"},
		},
		{
			name: "file types keep folders",
			opts: QueryOptions{FileTypes: []string{"image"}},
			want: []string{"Archive", "b.png", "photo.jpg", "photos"},
		},
		{
			name: "mime pattern",
			opts: QueryOptions{FileTypes: []string{"video/*", "application/pdf"}},
			want: []string{"A.pdf", "Archive", "clip.mp4", "photos"},
		},
		{
			name: "favorites only",
			opts: QueryOptions{FavoritesOnly: true},
			want: []string{"Archive", "b.png", "photos"},
		},
		{
			name: "date range",
			opts: QueryOptions{DateRange: &DateRange{
				From: time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
				To:   time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC),
			}},
			want: []string{"A.pdf", "Archive", "b.png", "photos"},
		},
		{
			name: "combined",
			opts: QueryOptions{Search: "p", FileTypes: []string{"document"}},
			want: []string{"A.pdf", "photos"},
		},
		{
			name: "no match",
			opts: QueryOptions{Search: "zzz"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Apply(newTestListing(), tt.opts)
			if got := itemNames(result.Items); !slices.Equal(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if result.TotalCount != len(tt.want) {
				t.Errorf("Expected total %d, got %d", len(tt.want), result.TotalCount)
			}
		})
	}
}

func TestApply_Pagination(t *testing.T) {
	all := itemNames(Apply(newTestListing(), QueryOptions{}).Items)

	for pageSize := 1; pageSize <= len(all)+1; pageSize++ {
		t.Run(fmt.Sprintf("size-%d", pageSize), func(t *testing.T) {
			first := Apply(newTestListing(), QueryOptions{Page: 1, PageSize: pageSize})
			wantPages := (len(all) + pageSize - 1) / pageSize
			if first.TotalPages != wantPages {
				t.Fatalf("Expected %d pages, got %d", wantPages, first.TotalPages)
			}

			// Concatenating every page yields the unpaginated sequence
			var joined []string
			for page := 1; page <= first.TotalPages; page++ {
				result := Apply(newTestListing(), QueryOptions{Page: page, PageSize: pageSize})
				if result.TotalCount != len(all) {
					t.Errorf("Expected total %d, got %d", len(all), result.TotalCount)
				}
				if len(result.Items) > pageSize {
					t.Errorf("Page %d holds %d items, more than %d", page, len(result.Items), pageSize)
				}
				joined = append(joined, itemNames(result.Items)...)
			}

			if !slices.Equal(joined, all) {
				t.Errorf("Expected %v, got %v", all, joined)
			}
		})
	}
}

func TestApply_PageOutOfRange(t *testing.T) {
	result := Apply(newTestListing(), QueryOptions{Page: 10, PageSize: 4})
	if len(result.Items) != 0 || result.TotalCount != 6 || result.TotalPages != 2 {
		t.Errorf("Unexpected result for page beyond the end: %+v", result)
	}

	empty := Apply(&data.DirectoryListing{}, QueryOptions{PageSize: 4})
	if empty.TotalCount != 0 || empty.TotalPages != 0 || len(empty.Items) != 0 {
		t.Errorf("Unexpected result for empty listing: %+v", empty)
	}
}

func TestParseSort(t *testing.T) {
	for _, raw := range []string{"", "name", "NAME"} {
		if key, err := ParseSortKey(raw); err != nil || key != SortByName {
			t.Errorf("ParseSortKey(%q) = %q, %v", raw, key, err)
		}
	}
	if key, err := ParseSortKey("date"); err != nil || key != SortByModified {
		t.Errorf("Expected 'date' to map to modified, got %q, %v", key, err)
	}
	if _, err := ParseSortKey("owner"); err == nil {
		t.Error("Expected error for unknown sort key")
	}

	if dir, err := ParseSortDirection("DESC"); err != nil || dir != SortDesc {
		t.Errorf("ParseSortDirection(DESC) = %q, %v", dir, err)
	}
	if _, err := ParseSortDirection("sideways"); err == nil {
		t.Error("Expected error for unknown direction")
	}
}
