package assetstore

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Adapter is the capability contract every assetstore backend implements.
// An adapter is bound to one Assetstore configuration at construction time
// and must be safe for concurrent use: signing holds no shared state, and
// each UploadSession is owned by a single upload flow.
type Adapter interface {
	// ValidateInfo normalizes the adapter's configuration and proves write
	// access with a live probe. It returns the normalized configuration or
	// a field-scoped *ValidationError. Provider failures during the probe
	// are logged and re-signaled as a bucket validation error.
	ValidateInfo(ctx context.Context) (*Assetstore, error)

	// InitiateUpload creates a fresh session for the request and returns
	// the first signed request: a whole-object PUT for single-shot uploads,
	// or the multipart-initiate POST for chunked ones. For chunked sessions
	// the provider-assigned multipart upload id has already been captured
	// into the session when InitiateUpload returns.
	InitiateUpload(ctx context.Context, req UploadRequest) (*UploadSession, *SignedRequest, error)

	// NextChunk authorizes the PUT of the next part of a chunked session.
	NextChunk(ctx context.Context, session *UploadSession) (*SignedRequest, error)

	// RecordPart appends a completed part's etag to the session. Parts must
	// arrive in part-number order and only after initiate captured an
	// upload id.
	RecordPart(ctx context.Context, session *UploadSession, partNumber int, etag string) error

	// CompleteUpload assembles a chunked session's parts into the final
	// object, or acknowledges a finished single-shot transfer. It fails
	// with *StateError while expected parts are missing.
	CompleteUpload(ctx context.Context, session *UploadSession) error

	// AbortUpload releases provider-side storage reserved for uncommitted
	// parts and marks the session aborted.
	AbortUpload(ctx context.Context, session *UploadSession) error

	// FinalizeUpload converts a completed session into a durable FileRecord.
	FinalizeUpload(ctx context.Context, session *UploadSession) (*FileRecord, error)

	// AuthorizeDownload produces a signed GET for the file, with a byte
	// range starting at offset when offset > 0.
	AuthorizeDownload(ctx context.Context, file *FileRecord, offset int64) (*SignedRequest, error)

	// DeleteObject removes the file's object from the provider. An already
	// absent object is treated as success so cleanup stays idempotent.
	DeleteObject(ctx context.Context, file *FileRecord) error

	// RequestOffset reports how many bytes of an interrupted upload have
	// been received, for backends that can answer that question.
	RequestOffset(ctx context.Context, session *UploadSession) (int64, error)
}

// Ingester is an optional adapter capability for server-side uploads of
// server-generated content. The direct-upload path never uses it.
type Ingester interface {
	Upload(ctx context.Context, objectKey string, r io.Reader, mimeType string) error
}

// SessionRepository persists upload sessions between protocol steps.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *UploadSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*UploadSession, error)
	UpdateSession(ctx context.Context, session *UploadSession) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// FileRepository persists the durable file records produced by finalize.
type FileRepository interface {
	CreateFile(ctx context.Context, file *FileRecord) error
	GetFile(ctx context.Context, id uuid.UUID) (*FileRecord, error)
	GetFileBySession(ctx context.Context, sessionID uuid.UUID) (*FileRecord, error)
	DeleteFile(ctx context.Context, id uuid.UUID) error
}
