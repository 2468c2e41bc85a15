package ephemeral

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/data"
)

func (eb *EphemeralBackend) ListObjects(ctx context.Context, bucket, prefix, delimiter string) ([]*data.StorageObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	nsPrefix := backend.NamespacedKey(bucket, prefix)

	var objects []*data.StorageObject
	scanPrefix(eb.objects, nsPrefix, func(_ string, obj *ephemeralObject) bool {
		info := obj.info
		objects = append(objects, &info)
		return true
	})

	if delimiter == "" {
		return objects, nil
	}
	return backend.GroupByDelimiter(objects, prefix, delimiter), nil
}

func (eb *EphemeralBackend) HeadObject(ctx context.Context, bucket, key string) (*data.StorageObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	obj, exists := eb.objects.Get(backend.NamespacedKey(bucket, key))
	if !exists {
		return nil, data.ErrNotExist
	}

	info := obj.info
	return &info, nil
}

func (eb *EphemeralBackend) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) (*data.StorageObject, error) {
	if key == "" || strings.HasSuffix(key, data.Separator) {
		return nil, fmt.Errorf("%w: object key '%s'", data.ErrInvalidPath, key)
	}

	var buffer bytes.Buffer
	if reader != nil {
		if _, err := io.Copy(&buffer, reader); err != nil {
			return nil, err
		}
	}
	if size >= 0 && int64(buffer.Len()) != size {
		return nil, fmt.Errorf("object '%s': expected %d bytes, got %d", key, size, buffer.Len())
	}

	caps := eb.GetCapabilities()
	if caps.MaxObjectSize > 0 && int64(buffer.Len()) > caps.MaxObjectSize {
		return nil, fmt.Errorf("object '%s' exceeds max object size of %d bytes", key, caps.MaxObjectSize)
	}

	if contentType == "" {
		contentType = data.ContentTypeApplicationStream
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	obj := &ephemeralObject{
		info: data.StorageObject{
			Bucket:      bucket,
			Key:         key,
			Size:        int64(buffer.Len()),
			ContentType: contentType,
			CreatedAt:   time.Now().UTC(),
			ETag:        data.NewOperationID(),
		},
		content: buffer.Bytes(),
	}
	eb.objects.Set(backend.NamespacedKey(bucket, key), obj)

	info := obj.info
	return &info, nil
}

func (eb *EphemeralBackend) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	src, exists := eb.objects.Get(backend.NamespacedKey(bucket, srcKey))
	if !exists {
		return data.ErrNotExist
	}

	dst := &ephemeralObject{
		info:    src.info,
		content: bytes.Clone(src.content),
	}
	dst.info.Key = dstKey
	dst.info.CreatedAt = time.Now().UTC()

	eb.objects.Set(backend.NamespacedKey(bucket, dstKey), dst)
	return nil
}

func (eb *EphemeralBackend) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.objects.Delete(backend.NamespacedKey(bucket, key))
	return nil
}

// ReadObject returns a copy of the object content.
func (eb *EphemeralBackend) ReadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	obj, exists := eb.objects.Get(backend.NamespacedKey(bucket, key))
	if !exists {
		return nil, data.ErrNotExist
	}

	return bytes.Clone(obj.content), nil
}
