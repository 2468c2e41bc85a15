package data

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Standard errors returned by the library and its backends.
var (
	// Path and request errors
	ErrInvalidPath          = errors.New("medialib: invalid path")
	ErrInvalidBucket        = errors.New("medialib: invalid bucket context")
	ErrInvalidUser          = errors.New("medialib: invalid user id")
	ErrAlreadyExists        = errors.New("medialib: already exists")
	ErrNotExist             = errors.New("medialib: does not exist")
	ErrConflictingOperation = errors.New("medialib: conflicting operation in flight")

	// Mutation outcome errors
	ErrPartialFailure        = errors.New("medialib: operation partially failed")
	ErrMetadataInconsistency = errors.New("medialib: metadata inconsistency")

	// Transport errors
	ErrStoreUnavailable = errors.New("medialib: store unavailable")

	// Backend errors
	ErrBackendUnsupported      = errors.New("medialib: backend capability unsupported")
	ErrBackendIncompatible     = errors.New("medialib: backend incompatible")
	ErrMalformedBackendAddress = errors.New("medialib: malformed backend address")
	ErrUnknownBackendProtocol  = errors.New("medialib: unknown backend protocol")
	ErrClosed                  = errors.New("medialib: library closed")
)

// Unavailable wraps a transport level failure as ErrStoreUnavailable.
func Unavailable(err error, op string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// KeyFailure records why a single object could not be mutated.
type KeyFailure struct {
	Key   string `json:"key"`
	Stage string `json:"stage"`
	Err   error  `json:"-"`
}

func (kf KeyFailure) Error() string {
	return fmt.Sprintf("%s (%s): %v", kf.Key, kf.Stage, kf.Err)
}

// PartialFailureError is returned when a multi-object mutation completed for some,
// but not all, of the enumerated objects. Succeeded, Failed and Skipped together
// cover the full enumeration snapshot so a caller can retry just the remainder.
type PartialFailureError struct {
	Op        string       `json:"op"`
	Succeeded []string     `json:"succeeded"`
	Failed    []KeyFailure `json:"failed"`
	Skipped   []string     `json:"skipped"`
}

func (pfe *PartialFailureError) Error() string {
	keys := make([]string, 0, len(pfe.Failed))
	for _, f := range pfe.Failed {
		keys = append(keys, f.Key)
	}

	return fmt.Sprintf("%v: %s: %d succeeded, %d failed [%s], %d skipped",
		ErrPartialFailure, pfe.Op, len(pfe.Succeeded), len(pfe.Failed), strings.Join(keys, ", "), len(pfe.Skipped))
}

func (pfe *PartialFailureError) Unwrap() error {
	return ErrPartialFailure
}

// FailedKeys returns the keys that failed, in enumeration order.
func (pfe *PartialFailureError) FailedKeys() []string {
	keys := make([]string, 0, len(pfe.Failed))
	for _, f := range pfe.Failed {
		keys = append(keys, f.Key)
	}
	return keys
}

type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = make([]error, 0)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
