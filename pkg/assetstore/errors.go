package assetstore

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrUnsupportedOperation indicates an operation that is structurally
	// impossible for the backend, such as resuming from an offset.
	ErrUnsupportedOperation = errors.New("operation not supported by this assetstore backend")

	// ErrSessionNotFound indicates an upload session was not found
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrFileNotFound indicates a file record was not found
	ErrFileNotFound = errors.New("file record not found")

	// ErrBackendNotRegistered indicates no adapter factory exists for a backend tag
	ErrBackendNotRegistered = errors.New("assetstore backend not registered")
)

// ValidationError rejects an assetstore configuration before acceptance.
// Field names the offending configuration field so the caller can surface a
// user-correctable message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid assetstore field %q: %s", e.Field, e.Message)
}

// StateError reports a violated upload session invariant, such as completing
// with missing parts or recording a part before initiate captured an upload
// id. It is fatal to the current operation and never retried automatically.
type StateError struct {
	Op      string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("upload session operation %s failed: %s", e.Op, e.Message)
}

// ProviderError wraps a network, auth or availability failure from the
// storage provider. Provider-internal detail stays in Err for logs and is
// not meant for end users.
type ProviderError struct {
	Op  string
	Key string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
