package assetstore

import (
	"time"

	"github.com/google/uuid"
)

// Backend tags for adapter dispatch.
const (
	BackendS3 = "s3"
)

// SessionStatus is the domain type for upload session lifecycle states.
type SessionStatus string

// Session status constants (typed).
const (
	SessionStatusCreated   SessionStatus = "created"
	SessionStatusUploading SessionStatus = "uploading"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFinalized SessionStatus = "finalized"
	SessionStatusAborted   SessionStatus = "aborted"
)

// Terminal reports whether no further upload activity is valid for the state.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusFinalized || s == SessionStatusAborted
}

// Assetstore is the configuration document for one storage target. It is
// owned by the metadata store; adapters hold an immutable reference to it
// for the lifetime of an operation.
type Assetstore struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name,omitempty"`
	Backend   string    `json:"backend"`
	S3        *S3Info   `json:"s3,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// S3Info holds the S3-specific assetstore configuration. Prefix carries no
// leading or trailing path separators once the store has been validated.
type S3Info struct {
	Bucket      string `json:"bucket"`
	Prefix      string `json:"prefix,omitempty"`
	AccessKeyID string `json:"access_key_id"`
	Secret      string `json:"secret"`

	// Endpoint is a service endpoint template. A "{bucket}" placeholder is
	// substituted for virtual-hosted addressing; a template without the
	// placeholder is treated as a path-style base URL. Empty selects the
	// default AWS endpoint.
	Endpoint string `json:"endpoint,omitempty"`
	Region   string `json:"region,omitempty"`
}

// UploadRequest describes one client upload. It is immutable once an
// UploadSession has been created from it.
type UploadRequest struct {
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
	FileName  string `json:"file_name"`
}

// Part records one completed chunk of a multipart upload.
type Part struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// UploadSession tracks a single logical upload from initiation to finalize
// or abort. Sessions are owned exclusively by the upload flow that created
// them and are persisted between steps by the caller, never shared across
// concurrent uploads.
type UploadSession struct {
	ID           uuid.UUID `json:"id"`
	AssetstoreID uuid.UUID `json:"assetstore_id"`

	// Behavior is the backend tag of the adapter that produced the session.
	Behavior string `json:"behavior"`

	ObjectKey      string `json:"object_key"`
	Chunked        bool   `json:"chunked"`
	ChunkSizeBytes int64  `json:"chunk_size_bytes,omitempty"`
	SizeBytes      int64  `json:"size_bytes"`
	MimeType       string `json:"mime_type,omitempty"`
	FileName       string `json:"file_name,omitempty"`

	// MultipartUploadID is assigned by the provider when a chunked session
	// is initiated and must accompany every subsequent part, complete and
	// abort call. Empty for single-shot sessions.
	MultipartUploadID string `json:"multipart_upload_id,omitempty"`

	// Parts holds completed part records in part-number order.
	Parts []Part `json:"parts,omitempty"`

	Status    SessionStatus `json:"status"`
	ETag      string        `json:"etag,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ExpectedParts returns the number of parts a chunked session must record
// before it can be completed. Single-shot sessions expect one transfer.
func (s *UploadSession) ExpectedParts() int {
	if !s.Chunked || s.ChunkSizeBytes <= 0 {
		return 1
	}
	n := s.SizeBytes / s.ChunkSizeBytes
	if s.SizeBytes%s.ChunkSizeBytes != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return int(n)
}

// SignedRequest is a ready-to-forward description of one authorized HTTP
// request against the storage provider. It is valid until ExpiresAt and is
// never persisted; a client that misses the window must request a new one.
type SignedRequest struct {
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	ExpiresAt int64             `json:"expires_at"`
}

// FileRecord is the durable record produced by finalizing an upload session.
type FileRecord struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	AssetstoreID uuid.UUID `json:"assetstore_id"`
	ObjectKey    string    `json:"object_key"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `json:"mime_type,omitempty"`
	FileName     string    `json:"file_name,omitempty"`
	Checksum     string    `json:"checksum,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
