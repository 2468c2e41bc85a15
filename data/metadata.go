package data

import (
	"slices"
	"strings"
	"time"
)

// MediaMetadata is the descriptive row kept in the metadata index for every uploaded object.
// It is keyed by (BucketID, FilePath) and must not outlive its object.
type MediaMetadata struct {
	ID           string    `json:"id"`
	BucketID     string    `json:"bucket_id"`
	FilePath     string    `json:"file_path"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	FileSize     int64     `json:"file_size"`
	Tags         []string  `json:"tags"`
	UploadedBy   string    `json:"uploaded_by"`
	UploadDate   time.Time `json:"upload_date"`
}

// NewMediaMetadata creates a metadata record with a fresh id and normalized tags.
func NewMediaMetadata(bucket, filePath, originalName, mimeType string, size int64, tags []string, uploadedBy string) *MediaMetadata {
	return &MediaMetadata{
		ID:           genMetadataID(),
		BucketID:     bucket,
		FilePath:     filePath,
		OriginalName: originalName,
		MimeType:     mimeType,
		FileSize:     size,
		Tags:         NormalizeTags(tags),
		UploadedBy:   uploadedBy,
		UploadDate:   time.Now().UTC(),
	}
}

// Clone returns a deep copy of the record.
func (mm *MediaMetadata) Clone() *MediaMetadata {
	clone := *mm
	clone.Tags = slices.Clone(mm.Tags)
	return &clone
}

// NormalizeTags turns a tag list into a set: trimmed, deduplicated and sorted.
func NormalizeTags(tags []string) []string {
	set := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		set = append(set, tag)
	}

	slices.Sort(set)
	return slices.Compact(set)
}

// FavoriteMark marks a file as favorited by a user. Existence equals favorited.
type FavoriteMark struct {
	UserID    string    `json:"user_id"`
	BucketID  string    `json:"bucket_id"`
	FilePath  string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
}
