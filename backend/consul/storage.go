package consul

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/data"
)

func (cb *ConsulBackend) ListObjects(ctx context.Context, bucket, prefix, delimiter string) ([]*data.StorageObject, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	bucketPrefix := cb.bucketPrefix(bucket)
	pairs, _, err := cb.kv.List(bucketPrefix+prefix, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, data.Unavailable(err, "kv list")
	}

	objects := make([]*data.StorageObject, 0, len(pairs))
	for _, pair := range pairs {
		key := strings.TrimPrefix(pair.Key, bucketPrefix)
		// Consul folders created outside of this backend end with "/"
		if key == "" || strings.HasSuffix(key, "/") {
			continue
		}
		objects = append(objects, toStorageObject(bucket, key, pair))
	}

	if delimiter == "" {
		return objects, nil
	}
	return backend.GroupByDelimiter(objects, prefix, delimiter), nil
}

func (cb *ConsulBackend) HeadObject(ctx context.Context, bucket, key string) (*data.StorageObject, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	pair, _, err := cb.kv.Get(cb.buildKey(bucket, key), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, data.Unavailable(err, "kv get")
	}
	if pair == nil {
		return nil, data.ErrNotExist
	}

	return toStorageObject(bucket, key, pair), nil
}

func (cb *ConsulBackend) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) (*data.StorageObject, error) {
	capabilities := cb.GetCapabilities()
	if size > capabilities.MaxObjectSize {
		return nil, fmt.Errorf("object '%s' exceeds max object size of %d bytes (Consul KV limit: 512KB)", key, capabilities.MaxObjectSize)
	}

	var content []byte
	if reader != nil {
		var err error
		content, err = io.ReadAll(io.LimitReader(reader, capabilities.MaxObjectSize+1))
		if err != nil {
			return nil, err
		}
	}
	if int64(len(content)) > capabilities.MaxObjectSize {
		return nil, fmt.Errorf("object '%s' exceeds max object size of %d bytes (Consul KV limit: 512KB)", key, capabilities.MaxObjectSize)
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now().UTC()
	pair := &api.KVPair{
		Key:   cb.buildKey(bucket, key),
		Value: content,
		Flags: uint64(now.UnixMilli()),
	}

	if _, err := cb.kv.Put(pair, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return nil, data.Unavailable(err, "kv put")
	}

	if contentType == "" {
		contentType = data.GetMIMEType(key)
	}

	return &data.StorageObject{
		Bucket:      bucket,
		Key:         key,
		Size:        int64(len(content)),
		ContentType: contentType,
		CreatedAt:   time.UnixMilli(now.UnixMilli()).UTC(),
	}, nil
}

func (cb *ConsulBackend) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	pair, _, err := cb.kv.Get(cb.buildKey(bucket, srcKey), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return data.Unavailable(err, "kv get")
	}
	if pair == nil {
		return data.ErrNotExist
	}

	copied := &api.KVPair{
		Key:   cb.buildKey(bucket, dstKey),
		Value: pair.Value,
		Flags: uint64(time.Now().UTC().UnixMilli()),
	}

	if _, err := cb.kv.Put(copied, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return data.Unavailable(err, "kv put")
	}
	return nil
}

func (cb *ConsulBackend) DeleteObject(ctx context.Context, bucket, key string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if _, err := cb.kv.Delete(cb.buildKey(bucket, key), (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return data.Unavailable(err, "kv delete")
	}
	return nil
}

func toStorageObject(bucket, key string, pair *api.KVPair) *data.StorageObject {
	obj := &data.StorageObject{
		Bucket:      bucket,
		Key:         key,
		Size:        int64(len(pair.Value)),
		ContentType: data.GetMIMEType(key),
		ETag:        fmt.Sprintf("%d", pair.ModifyIndex),
	}
	if pair.Flags > 0 {
		obj.CreatedAt = time.UnixMilli(int64(pair.Flags)).UTC()
	}

	return obj
}
