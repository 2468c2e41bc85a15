package medialib

import (
	"context"
	"fmt"

	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/backend/consul"
	"github.com/henrlaas/medialib/backend/ephemeral"
	"github.com/henrlaas/medialib/backend/postgres"
	"github.com/henrlaas/medialib/backend/s3"
	"github.com/henrlaas/medialib/backend/sqlite"
	"github.com/henrlaas/medialib/data"
)

// NewBackend creates the backend described by a backend address.
func NewBackend(ctx context.Context, address string) (backend.Backend, error) {
	addr, err := backend.ParseBackendAddress(address)
	if err != nil {
		return nil, err
	}

	switch addr.Protocol {
	case backend.ProtocolEphemeral:
		return ephemeral.NewEphemeralBackend(), nil
	case backend.ProtocolSqlite:
		return sqlite.NewSQLiteBackend(addr.Path)
	case backend.ProtocolPostgres:
		return postgres.NewPostgresBackend(ctx, addr.Raw)
	case backend.ProtocolS3:
		return s3.NewS3Backend(s3.S3BackendOptions{
			Endpoint:  addr.Host,
			AccessKey: addr.Username,
			SecretKey: addr.Password,
			UseSSL:    addr.BoolParam("ssl", false),
			Region:    addr.Param("region", ""),
			Buckets: map[string]string{
				data.BucketInternal.String(): addr.Param(data.BucketInternal.String(), ""),
				data.BucketCompany.String():  addr.Param(data.BucketCompany.String(), ""),
			},
			CreateBuckets: addr.BoolParam("create", false),
		})
	case backend.ProtocolConsul:
		return consul.NewConsulBackend(&consul.ConsulBackendConfig{
			Address:    addr.Host,
			Token:      addr.Param("token", ""),
			Datacenter: addr.Param("datacenter", ""),
			Namespace:  addr.Param("namespace", ""),
			Prefix:     addr.Param("prefix", ""),
		})
	}

	return nil, fmt.Errorf("failed to create backend for '%s': %w", address, data.ErrUnknownBackendProtocol)
}

// NewFromAddresses creates a library from an object storage address and an optional
// metadata address. Without a metadata address the object store must provide metadata itself.
func NewFromAddresses(ctx context.Context, storageAddress, metadataAddress string, opts ...LibraryOption) (*Library, error) {
	primary, err := NewBackend(ctx, storageAddress)
	if err != nil {
		return nil, err
	}

	store, ok := primary.(backend.ObjectStorageBackend)
	if !ok {
		return nil, fmt.Errorf("backend '%s' does not provide object storage: %w", primary.Name(), data.ErrBackendUnsupported)
	}

	if metadataAddress != "" {
		secondary, err := NewBackend(ctx, metadataAddress)
		if err != nil {
			return nil, err
		}

		index, ok := secondary.(backend.MetadataBackend)
		if !ok {
			return nil, fmt.Errorf("backend '%s' does not provide metadata: %w", secondary.Name(), data.ErrBackendUnsupported)
		}
		opts = append([]LibraryOption{WithMetadata(index)}, opts...)
	}

	return New(store, opts...)
}
