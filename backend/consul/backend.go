package consul

import (
	"context"
	"strings"
	"sync"

	"github.com/hashicorp/consul/api"
	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/data"
)

// ConsulBackend provides a small object store on top of the HashiCorp Consul KV store.
//
// Architecture:
// - Objects are stored under "<prefix>/<bucket>/<key>" with the content as value
// - The creation time is carried in the KV flags as unix milliseconds
// - Consul has no delimiter listing, children are grouped from a recursive listing
//
// Limitations:
// - Consul KV has a 512KB limit per value
// - Best suited for thumbnails, small documents and development setups
type ConsulBackend struct {
	mu     sync.RWMutex
	client *api.Client
	kv     *api.KV

	// Configuration
	config *ConsulBackendConfig
}

// ConsulBackendConfig contains configuration options for the Consul backend
type ConsulBackendConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Namespace for Consul Enterprise (optional)
	Namespace string

	// Prefix for all keys in Consul KV (default: "medialib")
	Prefix string
}

// NewConsulBackend creates a new Consul-backed object storage backend
func NewConsulBackend(config *ConsulBackendConfig) (*ConsulBackend, error) {
	if config == nil {
		config = &ConsulBackendConfig{}
	}

	// Set defaults
	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}

	if config.Prefix == "" {
		config.Prefix = "medialib"
	}

	// Create Consul client
	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}
	if config.Namespace != "" {
		clientConfig.Namespace = config.Namespace
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &ConsulBackend{
		client: client,
		kv:     client.KV(),
		config: config,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*ConsulBackend) Name() string {
	return "consul"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend
func (cb *ConsulBackend) Open(ctx context.Context) error {
	// Verify the agent is reachable
	if _, err := cb.client.Status().Leader(); err != nil {
		return data.Unavailable(err, "leader")
	}
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend
func (cb *ConsulBackend) Close(ctx context.Context) error {
	// Nothing to clean up - Consul client is stateless
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend
func (cb *ConsulBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
		},
		// Consul KV has a default limit of 512KB per value
		MaxObjectSize: 512 * 1024,
	}
}

// bucketPrefix returns the Consul KV prefix holding all keys of a bucket, ending in "/".
func (cb *ConsulBackend) bucketPrefix(bucket string) string {
	prefix := strings.Trim(cb.config.Prefix, "/")
	if prefix == "" {
		return bucket + "/"
	}
	return prefix + "/" + bucket + "/"
}

// buildKey constructs the full Consul KV key from the object key
func (cb *ConsulBackend) buildKey(bucket, key string) string {
	return cb.bucketPrefix(bucket) + strings.TrimPrefix(key, "/")
}
