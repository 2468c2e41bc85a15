package medialib

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/henrlaas/medialib/data"
)

type SortKey string

const (
	SortByName     SortKey = "name"
	SortBySize     SortKey = "size"
	SortByModified SortKey = "modified"
	SortByType     SortKey = "type"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortKey converts a user supplied sort key, defaulting to name.
func ParseSortKey(key string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(key))) {
	case "", SortByName:
		return SortByName, nil
	case SortBySize:
		return SortBySize, nil
	case SortByModified, "date", "created":
		return SortByModified, nil
	case SortByType:
		return SortByType, nil
	}
	return "", fmt.Errorf("invalid sort key '%s'", key)
}

// ParseSortDirection converts a user supplied direction, defaulting to ascending.
func ParseSortDirection(dir string) (SortDirection, error) {
	switch SortDirection(strings.ToLower(strings.TrimSpace(dir))) {
	case "", SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return "", fmt.Errorf("invalid sort direction '%s'", dir)
}

// DateRange bounds the creation time of files. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (dr *DateRange) contains(t time.Time) bool {
	if dr == nil {
		return true
	}
	if !dr.From.IsZero() && t.Before(dr.From) {
		return false
	}
	if !dr.To.IsZero() && t.After(dr.To) {
		return false
	}
	return true
}

type QueryOptions struct {
	// Search matches names case-insensitively, for folders and files alike.
	Search string `json:"search"`

	// FileTypes, DateRange and FavoritesOnly only filter files, folders are exempt.
	// Each file type is a MIME pattern ("image/*") or a category ("document").
	FileTypes     []string   `json:"file_types"`
	DateRange     *DateRange `json:"date_range,omitempty"`
	FavoritesOnly bool       `json:"favorites_only"`

	SortBy  SortKey       `json:"sort_by"`
	SortDir SortDirection `json:"sort_dir"`

	// Page is 1-based. PageSize <= 0 returns all items on a single page.
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type QueryResult struct {
	Items      []data.Item `json:"items"`
	TotalCount int         `json:"total_count"`
	TotalPages int         `json:"total_pages"`
	Page       int         `json:"page"`
}

// Apply filters, sorts and paginates a listing. Folders and files are merged into one
// sequence before pagination, so a page may hold both kinds.
func Apply(listing *data.DirectoryListing, opts QueryOptions) *QueryResult {
	items := filterItems(listing, opts)
	sortItems(items, opts.SortBy, opts.SortDir)

	return paginate(items, opts.Page, opts.PageSize)
}

// Query lists path and applies opts to the result.
func (l *Library) Query(ctx context.Context, userID string, bucket data.BucketContext, path data.VirtualPath, opts QueryOptions) (*QueryResult, error) {
	listing, err := l.ListDirectory(ctx, userID, bucket, path)
	if err != nil {
		return nil, err
	}
	return Apply(listing, opts), nil
}

func filterItems(listing *data.DirectoryListing, opts QueryOptions) []data.Item {
	search := strings.ToLower(strings.TrimSpace(opts.Search))
	items := make([]data.Item, 0, len(listing.Folders)+len(listing.Files))

	for _, item := range listing.Items() {
		if search != "" && !strings.Contains(item.FoldedName(), search) {
			continue
		}

		if item.Kind == data.ItemFile {
			if !matchFile(item.File, opts) {
				continue
			}
		}

		items = append(items, item)
	}

	return items
}

func matchFile(file *data.FileEntry, opts QueryOptions) bool {
	if opts.FavoritesOnly && !file.Favorited {
		return false
	}
	if !opts.DateRange.contains(file.CreatedAt) {
		return false
	}
	if len(opts.FileTypes) == 0 {
		return true
	}

	return slices.ContainsFunc(opts.FileTypes, func(filter string) bool {
		return data.MatchFileType(file.ContentType, filter)
	})
}

// sortItems orders by the primary key in the requested direction, then by name
// ascending, folders before files and finally by path.
func sortItems(items []data.Item, key SortKey, dir SortDirection) {
	slices.SortStableFunc(items, func(a, b data.Item) int {
		primary := 0
		switch key {
		case SortBySize:
			primary = cmp.Compare(a.Size(), b.Size())
		case SortByModified:
			primary = a.Modified().Compare(b.Modified())
		case SortByType:
			primary = strings.Compare(strings.ToLower(a.Type()), strings.ToLower(b.Type()))
		default:
			primary = strings.Compare(a.FoldedName(), b.FoldedName())
		}

		if dir == SortDesc {
			primary = -primary
		}
		if primary != 0 {
			return primary
		}

		return cmp.Or(
			strings.Compare(a.FoldedName(), b.FoldedName()),
			cmp.Compare(a.Kind, b.Kind),
			strings.Compare(a.Path(), b.Path()),
		)
	})
}

func paginate(items []data.Item, page, pageSize int) *QueryResult {
	total := len(items)
	if page < 1 {
		page = 1
	}

	if pageSize <= 0 {
		result := &QueryResult{
			Items:      items,
			TotalCount: total,
			Page:       1,
		}
		if total > 0 {
			result.TotalPages = 1
		}
		return result
	}

	totalPages := (total + pageSize - 1) / pageSize
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	return &QueryResult{
		Items:      items[start:end],
		TotalCount: total,
		TotalPages: totalPages,
		Page:       page,
	}
}
