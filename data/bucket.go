package data

import (
	"fmt"
	"strings"
)

// BucketContext selects one of the isolated object-store namespaces.
type BucketContext string

const (
	BucketInternal BucketContext = "internal"
	BucketCompany  BucketContext = "company"
)

// AllBuckets lists every known bucket context.
func AllBuckets() []BucketContext {
	return []BucketContext{BucketInternal, BucketCompany}
}

// ParseBucket converts a user supplied name into a BucketContext.
func ParseBucket(name string) (BucketContext, error) {
	bucket := BucketContext(strings.ToLower(strings.TrimSpace(name)))
	if err := bucket.Validate(); err != nil {
		return "", err
	}
	return bucket, nil
}

// Validate returns ErrInvalidBucket for unknown contexts.
func (bc BucketContext) Validate() error {
	switch bc {
	case BucketInternal, BucketCompany:
		return nil
	}
	return fmt.Errorf("%w: '%s'", ErrInvalidBucket, string(bc))
}

// RequiresScope reports whether mutations need a non-empty path.
// In the company context the first segment identifies the company folder.
func (bc BucketContext) RequiresScope() bool {
	return bc == BucketCompany
}

// CheckMutable rejects mutations at the bucket root where the context forbids them.
func (bc BucketContext) CheckMutable(vp VirtualPath) error {
	if err := bc.Validate(); err != nil {
		return err
	}
	if bc.RequiresScope() && vp.IsRoot() {
		return fmt.Errorf("%w: '%s' requires a company folder", ErrInvalidPath, string(bc))
	}
	return nil
}

func (bc BucketContext) String() string {
	return string(bc)
}
