package backend

import "slices"

// BackendCapability represents a capability that a backend can provide
type BackendCapability string

const (
	// Core capabilities by backend
	CapabilityMetadata      BackendCapability = "metadata"
	CapabilityObjectStorage BackendCapability = "object_storage"

	// Extension capabilities per 'object_storage' backend
	CapabilityDelimiter BackendCapability = "delimiter"
	CapabilityPublicURL BackendCapability = "public_url"
)

func GetAllCapabilities() *BackendCapabilities {
	return &BackendCapabilities{
		Capabilities: []BackendCapability{
			CapabilityMetadata,
			CapabilityObjectStorage,
			CapabilityDelimiter,
			CapabilityPublicURL,
		},
	}
}

// BackendCapabilities describes what a backend supports
type BackendCapabilities struct {
	Capabilities  []BackendCapability `json:"capabilities"`
	MaxObjectSize int64               `json:"max_object_size"`
}

// Contains checks if a capability is supported
func (bc *BackendCapabilities) Contains(cap BackendCapability) bool {
	return slices.Contains(bc.Capabilities, cap)
}
