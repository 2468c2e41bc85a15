package data

import "time"

// StorageObject describes an object as reported by an object storage backend.
// Common prefixes returned by delimiter listings carry IsPrefix and a key ending in "/".
type StorageObject struct {
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	ETag        string    `json:"etag,omitempty"`
	IsPrefix    bool      `json:"is_prefix,omitempty"`
}

// Name returns the last segment of the object key.
func (so *StorageObject) Name() string {
	return BaseName(so.Key)
}
