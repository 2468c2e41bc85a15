package backend

import (
	"slices"
	"strings"

	"github.com/henrlaas/medialib/data"
)

// GroupByDelimiter emulates a delimiter listing over a recursive one.
// Objects below prefix whose remainder contains the delimiter are collapsed into a
// single common prefix entry ending in the delimiter. The result is ordered by key.
func GroupByDelimiter(objects []*data.StorageObject, prefix, delimiter string) []*data.StorageObject {
	result := make([]*data.StorageObject, 0, len(objects))
	seen := make(map[string]struct{})

	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, prefix) {
			continue
		}

		rest := obj.Key[len(prefix):]
		if rest == "" {
			continue
		}

		idx := -1
		if delimiter != "" {
			idx = strings.Index(rest, delimiter)
		}
		if idx < 0 {
			result = append(result, obj)
			continue
		}

		commonPrefix := prefix + rest[:idx+len(delimiter)]
		if _, exists := seen[commonPrefix]; exists {
			continue
		}
		seen[commonPrefix] = struct{}{}

		result = append(result, &data.StorageObject{
			Bucket:   obj.Bucket,
			Key:      commonPrefix,
			IsPrefix: true,
		})
	}

	slices.SortFunc(result, func(a, b *data.StorageObject) int {
		return strings.Compare(a.Key, b.Key)
	})
	return result
}
