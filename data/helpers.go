package data

import "github.com/google/uuid"

func genMetadataID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewOperationID returns a sortable identifier used to correlate log lines of one mutation.
func NewOperationID() string {
	return uuid.Must(uuid.NewV7()).String()
}
