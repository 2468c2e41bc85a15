package data

import (
	"strings"
	"time"
)

// FolderEntry is an immediate child folder, inferred from a key prefix.
type FolderEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// FileEntry is an immediate child object joined with its metadata and favorite state.
// Degraded is set when no metadata row exists and the entry was built from the object alone.
type FileEntry struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
	OriginalName string    `json:"original_name,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	UploadedBy   string    `json:"uploaded_by,omitempty"`
	Favorited    bool      `json:"favorited"`
	Degraded     bool      `json:"degraded,omitempty"`
	URL          string    `json:"url,omitempty"`
}

// ItemKind tags the variant held by an Item.
type ItemKind int

const (
	ItemFolder ItemKind = iota
	ItemFile
)

func (ik ItemKind) String() string {
	switch ik {
	case ItemFolder:
		return "folder"
	case ItemFile:
		return "file"
	default:
		return "unknown"
	}
}

// Item is the tagged union of folder and file entries used by the query engine.
// Exactly one of Folder or File is set, matching Kind.
type Item struct {
	Kind   ItemKind     `json:"kind"`
	Folder *FolderEntry `json:"folder,omitempty"`
	File   *FileEntry   `json:"file,omitempty"`
}

// FolderItem wraps a folder entry.
func FolderItem(folder FolderEntry) Item {
	return Item{Kind: ItemFolder, Folder: &folder}
}

// FileItem wraps a file entry.
func FileItem(file FileEntry) Item {
	return Item{Kind: ItemFile, File: &file}
}

func (i Item) Name() string {
	if i.Kind == ItemFolder {
		return i.Folder.Name
	}
	return i.File.Name
}

func (i Item) Path() string {
	if i.Kind == ItemFolder {
		return i.Folder.Path
	}
	return i.File.Path
}

// Size is 0 for folders.
func (i Item) Size() int64 {
	if i.Kind == ItemFolder {
		return 0
	}
	return i.File.Size
}

// Modified is the zero time for folders.
func (i Item) Modified() time.Time {
	if i.Kind == ItemFolder {
		return time.Time{}
	}
	return i.File.CreatedAt
}

// Type is "folder" for folders and the content type for files.
func (i Item) Type() string {
	if i.Kind == ItemFolder {
		return ItemFolder.String()
	}
	return i.File.ContentType
}

// InconsistencyKind classifies a metadata/object mismatch.
type InconsistencyKind string

const (
	// An object exists without a metadata row.
	MissingMetadata InconsistencyKind = "missing_metadata"
	// A metadata row exists without an object.
	DanglingMetadata InconsistencyKind = "dangling_metadata"
)

// Inconsistency is a warning-level finding attached to a listing or sweep report.
type Inconsistency struct {
	Kind InconsistencyKind `json:"kind"`
	Key  string            `json:"key"`
}

// DirectoryListing is the merged view of one virtual directory. It is rebuilt on every request.
type DirectoryListing struct {
	Bucket   BucketContext   `json:"bucket"`
	Path     string          `json:"path"`
	Folders  []FolderEntry   `json:"folders"`
	Files    []FileEntry     `json:"files"`
	Warnings []Inconsistency `json:"warnings,omitempty"`
}

// Items returns folders followed by files as tagged items.
func (dl *DirectoryListing) Items() []Item {
	items := make([]Item, 0, len(dl.Folders)+len(dl.Files))
	for _, folder := range dl.Folders {
		items = append(items, FolderItem(folder))
	}
	for _, file := range dl.Files {
		items = append(items, FileItem(file))
	}
	return items
}

// FolderNames returns the names of all folders in listing order.
func (dl *DirectoryListing) FolderNames() []string {
	names := make([]string, 0, len(dl.Folders))
	for _, folder := range dl.Folders {
		names = append(names, folder.Name)
	}
	return names
}

// FileNames returns the names of all files in listing order.
func (dl *DirectoryListing) FileNames() []string {
	names := make([]string, 0, len(dl.Files))
	for _, file := range dl.Files {
		names = append(names, file.Name)
	}
	return names
}

// Inconsistent reports whether the listing carries any warnings.
func (dl *DirectoryListing) Inconsistent() bool {
	return len(dl.Warnings) > 0
}

// FoldedName returns the lower-cased name used for case-insensitive ordering and search.
func (i Item) FoldedName() string {
	return strings.ToLower(i.Name())
}
