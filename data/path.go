package data

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// Separator joins the segments of a VirtualPath into an object key.
	Separator = "/"
	// PlaceholderName is the zero-byte object that keeps an empty folder listable.
	PlaceholderName = ".keep"
)

// VirtualPath is the folder/file path as presented to users.
// The empty path denotes the root of a bucket context.
type VirtualPath []string

// ParsePath splits a user supplied path into its segments.
// Leading and trailing separators are ignored, empty inner segments are rejected.
func ParsePath(path string) (VirtualPath, error) {
	path = strings.Trim(path, Separator)
	if path == "" {
		return VirtualPath{}, nil
	}

	segments := strings.Split(path, Separator)
	vp := VirtualPath(segments)
	if err := vp.Validate(); err != nil {
		return nil, err
	}

	return vp, nil
}

// MustParsePath is like ParsePath but panics on malformed input.
func MustParsePath(path string) VirtualPath {
	vp, err := ParsePath(path)
	if err != nil {
		panic(err)
	}
	return vp
}

// ValidateName checks a single path segment.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty segment", ErrInvalidPath)
	case name == "." || name == "..":
		return fmt.Errorf("%w: relative segment '%s'", ErrInvalidPath, name)
	case strings.Contains(name, Separator):
		return fmt.Errorf("%w: segment '%s' contains '%s'", ErrInvalidPath, name, Separator)
	}

	return nil
}

// Validate checks every segment of the path.
func (vp VirtualPath) Validate() error {
	for _, segment := range vp {
		if err := ValidateName(segment); err != nil {
			return err
		}
	}
	return nil
}

// IsRoot returns true for the empty path.
func (vp VirtualPath) IsRoot() bool {
	return len(vp) == 0
}

// String joins all segments with the separator.
func (vp VirtualPath) String() string {
	return strings.Join(vp, Separator)
}

// Base returns the last segment, or an empty string for the root.
func (vp VirtualPath) Base() string {
	if vp.IsRoot() {
		return ""
	}
	return vp[len(vp)-1]
}

// Parent returns the containing path. The parent of the root is the root.
func (vp VirtualPath) Parent() VirtualPath {
	if len(vp) <= 1 {
		return VirtualPath{}
	}
	return slices.Clone(vp[:len(vp)-1])
}

// Join returns a new path with name appended.
func (vp VirtualPath) Join(names ...string) VirtualPath {
	joined := make(VirtualPath, 0, len(vp)+len(names))
	joined = append(joined, vp...)
	return append(joined, names...)
}

// Equal compares two paths segment by segment.
func (vp VirtualPath) Equal(other VirtualPath) bool {
	return slices.Equal(vp, other)
}

// Contains returns true if other equals vp or lies below it.
func (vp VirtualPath) Contains(other VirtualPath) bool {
	return IsPrefixOf(vp.String(), other.String())
}

// ParentOf returns the parent of the given path.
func ParentOf(vp VirtualPath) VirtualPath {
	return vp.Parent()
}

// ToKey maps a virtual path within a bucket context to its object key.
func ToKey(bucket BucketContext, vp VirtualPath) (string, error) {
	if err := bucket.Validate(); err != nil {
		return "", err
	}
	if err := vp.Validate(); err != nil {
		return "", err
	}

	return vp.String(), nil
}

// SplitKey maps an object key back to its virtual path.
func SplitKey(key string) (VirtualPath, error) {
	if key == "" {
		return VirtualPath{}, nil
	}
	if strings.HasPrefix(key, Separator) || strings.HasSuffix(key, Separator) {
		return nil, fmt.Errorf("%w: key '%s' has leading or trailing separator", ErrInvalidPath, key)
	}

	vp := VirtualPath(strings.Split(key, Separator))
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	return vp, nil
}

// IsPrefixOf reports whether b equals a or lies below a.
// "foo" is a prefix of "foo" and "foo/bar", but not of "foobar".
// The empty key is a prefix of every key.
func IsPrefixOf(a, b string) bool {
	if a == "" {
		return true
	}
	if a == b {
		return true
	}

	return strings.HasPrefix(b, a+Separator)
}

// Overlaps reports whether either key is a prefix of the other.
func Overlaps(a, b string) bool {
	return IsPrefixOf(a, b) || IsPrefixOf(b, a)
}

// ReplacePrefix substitutes oldPrefix with newPrefix in key, keeping the remainder verbatim.
// The caller must ensure IsPrefixOf(oldPrefix, key).
func ReplacePrefix(key, oldPrefix, newPrefix string) string {
	if key == oldPrefix {
		return newPrefix
	}

	rest := strings.TrimPrefix(key, oldPrefix)
	if oldPrefix == "" {
		rest = Separator + rest
	}
	if newPrefix == "" {
		return strings.TrimPrefix(rest, Separator)
	}
	return newPrefix + rest
}

// ParentKey returns the key of the folder containing key, "" for top-level keys.
func ParentKey(key string) string {
	if idx := strings.LastIndex(key, Separator); idx >= 0 {
		return key[:idx]
	}
	return ""
}

// DirPrefix returns the listing prefix for a folder key: "" for the root, "key/" otherwise.
func DirPrefix(key string) string {
	if key == "" {
		return ""
	}
	return key + Separator
}

// PlaceholderKey returns the key of the placeholder object for a folder key.
func PlaceholderKey(folderKey string) string {
	return DirPrefix(folderKey) + PlaceholderName
}

// IsPlaceholder reports whether key addresses a folder placeholder object.
func IsPlaceholder(key string) bool {
	return key == PlaceholderName || strings.HasSuffix(key, Separator+PlaceholderName)
}

// BaseName returns the last segment of an object key.
func BaseName(key string) string {
	key = strings.TrimSuffix(key, Separator)
	if idx := strings.LastIndex(key, Separator); idx >= 0 {
		return key[idx+1:]
	}
	return key
}
