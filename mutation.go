package medialib

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/henrlaas/medialib/data"
	"github.com/henrlaas/medialib/log"
)

// UploadFile describes a file handed to Upload.
type UploadFile struct {
	Name        string
	Reader      io.Reader
	Size        int64 // -1 if unknown
	ContentType string
	Tags        []string
	UploadedBy  string
}

// MutationResult lists the source keys a multi-object mutation handled.
// Succeeded, Failed and Skipped together cover the enumeration snapshot.
type MutationResult struct {
	OperationID string            `json:"operation_id"`
	Succeeded   []string          `json:"succeeded"`
	Failed      []data.KeyFailure `json:"failed"`
	Skipped     []string          `json:"skipped"`
}

func newMutationResult() *MutationResult {
	return &MutationResult{
		OperationID: data.NewOperationID(),
		Succeeded:   make([]string, 0),
		Failed:      make([]data.KeyFailure, 0),
		Skipped:     make([]string, 0),
	}
}

// err returns a *data.PartialFailureError if any key failed or was skipped.
func (mr *MutationResult) err(op string) error {
	if len(mr.Failed) == 0 && len(mr.Skipped) == 0 {
		return nil
	}
	return &data.PartialFailureError{
		Op:        op,
		Succeeded: mr.Succeeded,
		Failed:    mr.Failed,
		Skipped:   mr.Skipped,
	}
}

// CreateFolder writes the placeholder object for parent/name.
func (l *Library) CreateFolder(ctx context.Context, bucket data.BucketContext, parent data.VirtualPath, name string) (folder *data.FolderEntry, err error) {
	start := time.Now()
	defer func() { l.metrics.observe("create_folder", err, start) }()

	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	if err := validateEntryName(name); err != nil {
		return nil, err
	}
	if err := bucket.CheckMutable(parent); err != nil {
		return nil, err
	}

	key, err := data.ToKey(bucket, parent.Join(name))
	if err != nil {
		return nil, err
	}

	release, err := l.guard.acquire(bucket, key)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := l.checkParents(ctx, bucket, key); err != nil {
		return nil, err
	}

	exists, err := l.exists(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: '%s'", data.ErrAlreadyExists, key)
	}

	placeholder := data.PlaceholderKey(key)
	if _, err := l.store.PutObject(context.WithoutCancel(ctx), bucket.String(), placeholder, bytes.NewReader(nil), 0, data.ContentTypeDirectory); err != nil {
		return nil, err
	}

	l.log.Info("Created folder '%s:%s'", bucket, key)
	return &data.FolderEntry{
		Name: name,
		Path: key,
	}, nil
}

// Upload writes the file below dir and records its metadata.
// If only the metadata write fails the object is kept, the entry is returned together
// with an error wrapping ErrMetadataInconsistency.
func (l *Library) Upload(ctx context.Context, bucket data.BucketContext, dir data.VirtualPath, file *UploadFile) (entry *data.FileEntry, err error) {
	start := time.Now()
	defer func() { l.metrics.observe("upload", err, start) }()

	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: no file", data.ErrInvalidPath)
	}
	if err := validateEntryName(file.Name); err != nil {
		return nil, err
	}
	if err := bucket.CheckMutable(dir); err != nil {
		return nil, err
	}

	key, err := data.ToKey(bucket, dir.Join(file.Name))
	if err != nil {
		return nil, err
	}

	release, err := l.guard.acquire(bucket, key)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := l.checkParents(ctx, bucket, key); err != nil {
		return nil, err
	}

	// A file must not shadow an existing folder
	children, err := l.store.ListObjects(ctx, bucket.String(), data.DirPrefix(key), data.Separator)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		return nil, fmt.Errorf("%w: folder '%s'", data.ErrAlreadyExists, key)
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = data.GetMIMEType(file.Name)
	}

	obj, err := l.store.PutObject(ctx, bucket.String(), key, file.Reader, file.Size, contentType)
	if err != nil {
		return nil, err
	}
	l.metrics.uploaded(bucket, obj.Size)

	meta := data.NewMediaMetadata(bucket.String(), key, file.Name, contentType, obj.Size, file.Tags, file.UploadedBy)
	entry = &data.FileEntry{
		Name:         file.Name,
		Path:         key,
		Size:         obj.Size,
		ContentType:  contentType,
		CreatedAt:    obj.CreatedAt,
		OriginalName: meta.OriginalName,
		Tags:         meta.Tags,
		UploadedBy:   meta.UploadedBy,
		URL:          l.publicURL(bucket, key),
	}

	// The object exists now, the metadata write must not be abandoned
	if err := l.index.UpsertMetadata(context.WithoutCancel(ctx), meta); err != nil {
		l.log.Error("Uploaded '%s:%s' without metadata: %v", bucket, key, err)
		entry.Degraded = true
		return entry, fmt.Errorf("%w: '%s': %v", data.ErrMetadataInconsistency, key, err)
	}

	l.log.Info("Uploaded '%s:%s' (%d bytes)", bucket, key, obj.Size)
	return entry, nil
}

// RenameOrMove moves every object equal to or below oldPath to newPath.
// Objects are copied and then deleted one by one, metadata and favorites follow each object.
// The first failed copy aborts the remaining objects, which are reported as skipped.
// Already moved objects stay in place, a partial result is returned with a
// *data.PartialFailureError. Such a move is completed by calling ResumeMove with the
// same paths once the cause is gone.
func (l *Library) RenameOrMove(ctx context.Context, bucket data.BucketContext, oldPath, newPath data.VirtualPath) (*MutationResult, error) {
	return l.move(ctx, "rename", bucket, oldPath, newPath, false)
}

// ResumeMove continues a RenameOrMove of oldPath to newPath that finished partially.
// The destination may already hold objects, remaining objects below oldPath are moved
// next to them and existing destination keys are overwritten. Metadata rows left below
// oldPath whose object already reached the destination are moved as well.
func (l *Library) ResumeMove(ctx context.Context, bucket data.BucketContext, oldPath, newPath data.VirtualPath) (*MutationResult, error) {
	return l.move(ctx, "resume_move", bucket, oldPath, newPath, true)
}

func (l *Library) move(ctx context.Context, op string, bucket data.BucketContext, oldPath, newPath data.VirtualPath, resume bool) (result *MutationResult, err error) {
	start := time.Now()
	defer func() { l.metrics.observe(op, err, start) }()

	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	if oldPath.IsRoot() || newPath.IsRoot() {
		return nil, fmt.Errorf("%w: cannot move the bucket root", data.ErrInvalidPath)
	}
	if err := bucket.CheckMutable(oldPath.Parent()); err != nil {
		return nil, err
	}
	if err := bucket.CheckMutable(newPath.Parent()); err != nil {
		return nil, err
	}
	if err := validateEntryName(newPath.Base()); err != nil {
		return nil, err
	}

	oldKey, err := data.ToKey(bucket, oldPath)
	if err != nil {
		return nil, err
	}
	newKey, err := data.ToKey(bucket, newPath)
	if err != nil {
		return nil, err
	}

	result = newMutationResult()
	if oldKey == newKey {
		return result, nil
	}
	if data.IsPrefixOf(oldKey, newKey) {
		return nil, fmt.Errorf("%w: cannot move '%s' into itself", data.ErrInvalidPath, oldKey)
	}

	release, err := l.guard.acquire(bucket, oldKey, newKey)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := l.checkParents(ctx, bucket, newKey); err != nil {
		return nil, err
	}

	objects, err := l.enumerate(ctx, bucket, oldKey)
	if err != nil {
		return nil, err
	}

	var pending []*data.MediaMetadata
	if resume {
		if pending, err = l.pendingMetadata(ctx, bucket, oldKey, objects); err != nil {
			return nil, err
		}
	}
	if len(objects) == 0 && len(pending) == 0 {
		return nil, fmt.Errorf("%w: '%s'", data.ErrNotExist, oldKey)
	}

	if !resume {
		occupied, err := l.exists(ctx, bucket, newKey)
		if err != nil {
			return nil, err
		}
		if occupied {
			return nil, fmt.Errorf("%w: '%s'", data.ErrAlreadyExists, newKey)
		}
	}

	logger := l.log.Named(result.OperationID)
	logger.Info("Moving %d objects from '%s:%s' to '%s'", len(objects), bucket, oldKey, newKey)

	// Caller cancellation must not leave the move half done
	work := context.WithoutCancel(ctx)
	for i, obj := range objects {
		dstKey := data.ReplacePrefix(obj.Key, oldKey, newKey)

		if err := l.store.CopyObject(work, bucket.String(), obj.Key, dstKey); err != nil {
			logger.Error("Failed to copy '%s' to '%s': %v", obj.Key, dstKey, err)
			result.Failed = append(result.Failed, data.KeyFailure{Key: obj.Key, Stage: "copy", Err: err})
			for _, rest := range objects[i+1:] {
				result.Skipped = append(result.Skipped, rest.Key)
			}
			break
		}

		moved := true
		if err := l.store.DeleteObject(work, bucket.String(), obj.Key); err != nil {
			logger.Error("Failed to delete '%s' after copy: %v", obj.Key, err)
			result.Failed = append(result.Failed, data.KeyFailure{Key: obj.Key, Stage: "delete", Err: err})
			moved = false
		}

		if data.IsPlaceholder(obj.Key) {
			if moved {
				result.Succeeded = append(result.Succeeded, obj.Key)
			}
			continue
		}

		if err := l.index.RenameMetadata(work, bucket.String(), obj.Key, dstKey); err != nil {
			logger.Error("Failed to move metadata of '%s': %v", obj.Key, err)
			if moved {
				result.Failed = append(result.Failed, data.KeyFailure{Key: obj.Key, Stage: "metadata", Err: err})
			}
			moved = false
		}

		if moved {
			result.Succeeded = append(result.Succeeded, obj.Key)
		}
	}

	// Rows whose object was moved by an earlier attempt
	if len(result.Skipped) == 0 {
		for _, row := range pending {
			dstKey := data.ReplacePrefix(row.FilePath, oldKey, newKey)

			if _, err := l.store.HeadObject(work, bucket.String(), dstKey); err != nil {
				result.Failed = append(result.Failed, data.KeyFailure{Key: row.FilePath, Stage: "metadata", Err: err})
				continue
			}
			if err := l.index.RenameMetadata(work, bucket.String(), row.FilePath, dstKey); err != nil {
				logger.Error("Failed to move metadata of '%s': %v", row.FilePath, err)
				result.Failed = append(result.Failed, data.KeyFailure{Key: row.FilePath, Stage: "metadata", Err: err})
				continue
			}
			result.Succeeded = append(result.Succeeded, row.FilePath)
		}
	} else {
		for _, row := range pending {
			result.Skipped = append(result.Skipped, row.FilePath)
		}
	}

	if err := result.err(op); err != nil {
		logger.Warn("Move of '%s:%s' finished partially: %v", bucket, oldKey, err)
		return result, err
	}

	logger.Info("Moved '%s:%s' to '%s'", bucket, oldKey, newKey)
	return result, nil
}

// Rename changes the last segment of path.
func (l *Library) Rename(ctx context.Context, bucket data.BucketContext, path data.VirtualPath, newName string) (*MutationResult, error) {
	if err := validateEntryName(newName); err != nil {
		return nil, err
	}
	return l.RenameOrMove(ctx, bucket, path, path.Parent().Join(newName))
}

// Move places path below newParent, keeping its name.
func (l *Library) Move(ctx context.Context, bucket data.BucketContext, path, newParent data.VirtualPath) (*MutationResult, error) {
	if path.IsRoot() {
		return nil, fmt.Errorf("%w: cannot move the bucket root", data.ErrInvalidPath)
	}
	return l.RenameOrMove(ctx, bucket, path, newParent.Join(path.Base()))
}

// checkParents fails with ErrAlreadyExists when any parent of key is stored as a file.
func (l *Library) checkParents(ctx context.Context, bucket data.BucketContext, key string) error {
	for parent := data.ParentKey(key); parent != ""; parent = data.ParentKey(parent) {
		_, err := l.store.HeadObject(ctx, bucket.String(), parent)
		if err == nil {
			return fmt.Errorf("%w: '%s' is a file", data.ErrAlreadyExists, parent)
		}
		if !errors.Is(err, data.ErrNotExist) {
			return err
		}
	}
	return nil
}

// pendingMetadata returns the rows equal to or below key that have no object in objects.
func (l *Library) pendingMetadata(ctx context.Context, bucket data.BucketContext, key string, objects []*data.StorageObject) ([]*data.MediaMetadata, error) {
	rows, err := l.index.ListMetadata(ctx, bucket.String(), key)
	if err != nil {
		return nil, err
	}

	stored := make(map[string]struct{}, len(objects))
	for _, obj := range objects {
		stored[obj.Key] = struct{}{}
	}

	pending := make([]*data.MediaMetadata, 0)
	for _, row := range rows {
		if _, exists := stored[row.FilePath]; !exists {
			pending = append(pending, row)
		}
	}
	return pending, nil
}

// Delete removes a file or, with isFolder, every object below the folder.
// Metadata rows and favorite marks of each removed object are removed with it.
// The folder contents are enumerated once, objects added later are not included.
func (l *Library) Delete(ctx context.Context, bucket data.BucketContext, path data.VirtualPath, isFolder bool) (result *MutationResult, err error) {
	start := time.Now()
	defer func() { l.metrics.observe("delete", err, start) }()

	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	if path.IsRoot() {
		return nil, fmt.Errorf("%w: cannot delete the bucket root", data.ErrInvalidPath)
	}
	if err := bucket.CheckMutable(path.Parent()); err != nil {
		return nil, err
	}

	key, err := data.ToKey(bucket, path)
	if err != nil {
		return nil, err
	}

	release, err := l.guard.acquire(bucket, key)
	if err != nil {
		return nil, err
	}
	defer release()

	result = newMutationResult()
	logger := l.log.Named(result.OperationID)
	work := context.WithoutCancel(ctx)

	if !isFolder {
		if _, err := l.store.HeadObject(ctx, bucket.String(), key); err != nil {
			return nil, err
		}

		if err := l.store.DeleteObject(work, bucket.String(), key); err != nil {
			return nil, err
		}
		if err := l.purge(work, bucket, key); err != nil {
			logger.Error("Deleted '%s:%s' but kept its metadata: %v", bucket, key, err)
			result.Failed = append(result.Failed, data.KeyFailure{Key: key, Stage: "metadata", Err: err})
			return result, result.err("delete")
		}

		result.Succeeded = append(result.Succeeded, key)
		logger.Info("Deleted file '%s:%s'", bucket, key)
		return result, nil
	}

	objects, err := l.store.ListObjects(ctx, bucket.String(), data.DirPrefix(key), "")
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("%w: '%s'", data.ErrNotExist, key)
	}

	logger.Info("Deleting %d objects below '%s:%s'", len(objects), bucket, key)

	for _, obj := range objects {
		if err := l.store.DeleteObject(work, bucket.String(), obj.Key); err != nil {
			logger.Error("Failed to delete '%s': %v", obj.Key, err)
			result.Failed = append(result.Failed, data.KeyFailure{Key: obj.Key, Stage: "delete", Err: err})
			continue
		}

		if !data.IsPlaceholder(obj.Key) {
			if err := l.purge(work, bucket, obj.Key); err != nil {
				logger.Error("Failed to delete metadata of '%s': %v", obj.Key, err)
				result.Failed = append(result.Failed, data.KeyFailure{Key: obj.Key, Stage: "metadata", Err: err})
				continue
			}
		}

		result.Succeeded = append(result.Succeeded, obj.Key)
	}

	// Rows whose objects vanished earlier would otherwise outlive the folder
	if len(result.Failed) == 0 {
		l.purgeDangling(work, logger, bucket, key)
	}

	if err := result.err("delete"); err != nil {
		logger.Warn("Delete of '%s:%s' finished partially: %v", bucket, key, err)
		return result, err
	}

	logger.Info("Deleted folder '%s:%s'", bucket, key)
	return result, nil
}

// purge removes the metadata row and every favorite mark of key.
func (l *Library) purge(ctx context.Context, bucket data.BucketContext, key string) error {
	errs := data.Errors{}
	errs.Add(l.index.DeleteMetadata(ctx, bucket.String(), key))
	errs.Add(l.index.DeleteFavorites(ctx, bucket.String(), key))
	return errs.Errors()
}

// purgeDangling removes metadata rows below key whose object no longer exists.
func (l *Library) purgeDangling(ctx context.Context, logger *log.Logger, bucket data.BucketContext, key string) {
	rows, err := l.index.ListMetadata(ctx, bucket.String(), key)
	if err != nil {
		logger.Warn("Failed to list remaining metadata below '%s:%s': %v", bucket, key, err)
		return
	}

	for _, row := range rows {
		if row.FilePath == key {
			continue
		}

		_, err := l.store.HeadObject(ctx, bucket.String(), row.FilePath)
		if !errors.Is(err, data.ErrNotExist) {
			continue
		}
		if err := l.purge(ctx, bucket, row.FilePath); err != nil {
			logger.Warn("Failed to delete dangling metadata '%s': %v", row.FilePath, err)
		}
	}
}

// validateEntryName checks a new file or folder name.
func validateEntryName(name string) error {
	if err := data.ValidateName(name); err != nil {
		return err
	}
	if name == data.PlaceholderName {
		return fmt.Errorf("%w: '%s' is reserved", data.ErrInvalidPath, name)
	}
	return nil
}
