package s3

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/data"
	"github.com/minio/minio-go/v7"
)

func (sb *S3Backend) ListObjects(ctx context.Context, bucket, prefix, delimiter string) ([]*data.StorageObject, error) {
	// minio only lists non-recursively along "/"
	native := delimiter == data.Separator
	objectsCh := sb.client.ListObjects(ctx, sb.physical(bucket), minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: !native,
	})

	var objects []*data.StorageObject
	for obj := range objectsCh {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "list objects")
		}

		if native && strings.HasSuffix(obj.Key, data.Separator) {
			objects = append(objects, &data.StorageObject{
				Bucket:   bucket,
				Key:      obj.Key,
				IsPrefix: true,
			})
			continue
		}

		objects = append(objects, toStorageObject(bucket, obj))
	}

	if delimiter != "" && !native {
		return backend.GroupByDelimiter(objects, prefix, delimiter), nil
	}
	return objects, nil
}

func (sb *S3Backend) HeadObject(ctx context.Context, bucket, key string) (*data.StorageObject, error) {
	info, err := sb.client.StatObject(ctx, sb.physical(bucket), key, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "stat object")
	}

	return toStorageObject(bucket, info), nil
}

func (sb *S3Backend) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) (*data.StorageObject, error) {
	if contentType == "" {
		contentType = data.ContentTypeApplicationStream
	}

	info, err := sb.client.PutObject(ctx, sb.physical(bucket), key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, mapError(err, "put object")
	}

	return &data.StorageObject{
		Bucket:      bucket,
		Key:         key,
		Size:        info.Size,
		ContentType: contentType,
		CreatedAt:   info.LastModified,
		ETag:        info.ETag,
	}, nil
}

func (sb *S3Backend) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	physical := sb.physical(bucket)

	_, err := sb.client.CopyObject(ctx, minio.CopyDestOptions{
		Bucket: physical,
		Object: dstKey,
	}, minio.CopySrcOptions{
		Bucket: physical,
		Object: srcKey,
	})

	return mapError(err, "copy object")
}

func (sb *S3Backend) DeleteObject(ctx context.Context, bucket, key string) error {
	err := sb.client.RemoveObject(ctx, sb.physical(bucket), key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil
	}

	return mapError(err, "remove object")
}

// PublicURL returns the path-style URL of an object.
func (sb *S3Backend) PublicURL(bucket, key string) string {
	endpoint := *sb.client.EndpointURL()

	segments := []string{url.PathEscape(sb.physical(bucket))}
	for _, segment := range strings.Split(key, data.Separator) {
		segments = append(segments, url.PathEscape(segment))
	}

	endpoint.Path = ""
	endpoint.RawPath = ""
	return endpoint.String() + "/" + strings.Join(segments, "/")
}

func toStorageObject(bucket string, info minio.ObjectInfo) *data.StorageObject {
	contentType := info.ContentType
	if contentType == "" {
		contentType = data.GetMIMEType(info.Key)
	}

	return &data.StorageObject{
		Bucket:      bucket,
		Key:         info.Key,
		Size:        info.Size,
		ContentType: contentType,
		CreatedAt:   info.LastModified,
		ETag:        info.ETag,
	}
}

func mapError(err error, op string) error {
	if err == nil {
		return nil
	}

	errResponse := minio.ToErrorResponse(err)
	if errResponse.Code == "NoSuchKey" {
		return data.ErrNotExist
	}

	return data.Unavailable(err, op)
}
