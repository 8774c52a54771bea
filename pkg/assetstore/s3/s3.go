// Package s3 implements the S3 assetstore adapter. It grants clients
// HMAC-signed, time-limited permission to move bytes directly against the
// provider and drives the multipart-upload handshake for large uploads.
package s3

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/tendant/asset-store/pkg/assetstore"
	"github.com/tendant/asset-store/pkg/assetstore/objectkey"
)

// BackendName is the backend tag this adapter registers under.
const BackendName = assetstore.BackendS3

const (
	// DefaultChunkSizeBytes is both the single-shot/chunked threshold and
	// the per-part size of chunked uploads.
	DefaultChunkSizeBytes int64 = 64 * 1024 * 1024

	// DefaultSignatureTTL bounds the window during which a leaked signed
	// request is exploitable. Descriptors are not renewable.
	DefaultSignatureTTL = 120 * time.Second
)

// Doer executes the adapter's own signed metadata requests (multipart
// initiate/complete/abort, object delete). *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Adapter implements assetstore.Adapter for S3-compatible providers. It is
// bound to one assetstore configuration and is safe for concurrent use.
type Adapter struct {
	store      *assetstore.Assetstore
	signer     *signer
	keys       objectkey.Generator
	httpClient Doer
	prober     WriteProber
	chunkSize  int64
	ttl        time.Duration
	now        func() time.Time

	mu        sync.Mutex
	awsClient *awss3.Client
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithChunkSize overrides the chunked-upload threshold and part size.
func WithChunkSize(n int64) Option {
	return func(a *Adapter) { a.chunkSize = n }
}

// WithSignatureTTL overrides the signed request validity window.
func WithSignatureTTL(d time.Duration) Option {
	return func(a *Adapter) { a.ttl = d }
}

// WithHTTPClient overrides the client used for the adapter's own signed
// metadata calls.
func WithHTTPClient(c Doer) Option {
	return func(a *Adapter) { a.httpClient = c }
}

// WithWriteProber overrides the write-access probe used by ValidateInfo.
func WithWriteProber(p WriteProber) Option {
	return func(a *Adapter) { a.prober = p }
}

// WithKeyGenerator overrides the object key generator.
func WithKeyGenerator(g objectkey.Generator) Option {
	return func(a *Adapter) { a.keys = g }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New creates an S3 adapter bound to the given assetstore configuration.
func New(store *assetstore.Assetstore, opts ...Option) (*Adapter, error) {
	if store == nil || store.S3 == nil {
		return nil, fmt.Errorf("s3 assetstore configuration is required")
	}

	a := &Adapter{
		store:      store,
		keys:       objectkey.NewShardedGenerator(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		chunkSize:  DefaultChunkSizeBytes,
		ttl:        DefaultSignatureTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.signer = newSigner(store.S3, a.ttl, a.now)

	return a, nil
}

// Factory adapts New to the registry's factory signature.
func Factory(opts ...Option) assetstore.Factory {
	return func(store *assetstore.Assetstore) (assetstore.Adapter, error) {
		return New(store, opts...)
	}
}

// ValidateInfo normalizes the configuration and proves write access by
// leaving a zero-byte test object under the prefix. Provider failures during
// the probe are logged and re-signaled as a bucket validation error; the
// underlying error never reaches the caller.
func (a *Adapter) ValidateInfo(ctx context.Context) (*assetstore.Assetstore, error) {
	info := a.store.S3
	if info == nil {
		return nil, &assetstore.ValidationError{Field: "bucket", Message: "s3 configuration must not be empty"}
	}

	info.Prefix = normalizePrefix(info.Prefix)

	if info.Bucket == "" {
		return nil, &assetstore.ValidationError{Field: "bucket", Message: "bucket must not be empty"}
	}
	if info.Secret == "" {
		return nil, &assetstore.ValidationError{Field: "secretKey", Message: "secret key must not be empty"}
	}
	if info.AccessKeyID == "" {
		return nil, &assetstore.ValidationError{Field: "accessKeyId", Message: "access key ID must not be empty"}
	}

	prober, err := a.writeProber(ctx)
	if err != nil {
		slog.Error("s3 assetstore probe setup failed", "bucket", info.Bucket, "error", err)
		return nil, &assetstore.ValidationError{Field: "bucket", Message: fmt.Sprintf("unable to write into bucket %q", info.Bucket)}
	}
	if err := prober.ProbeWrite(ctx, probeKey(info.Prefix)); err != nil {
		slog.Error("s3 assetstore write probe failed", "bucket", info.Bucket, "error", err)
		return nil, &assetstore.ValidationError{Field: "bucket", Message: fmt.Sprintf("unable to write into bucket %q", info.Bucket)}
	}

	return a.store, nil
}

// normalizePrefix strips leading and trailing path separators. It is
// idempotent.
func normalizePrefix(prefix string) string {
	return strings.Trim(prefix, "/")
}

// probeKey is where the zero-byte validation object is written.
func probeKey(prefix string) string {
	if prefix == "" {
		return "test"
	}
	return prefix + "/test"
}

// RequestOffset is structurally impossible for this backend: the server
// never observes the direct client-to-provider transfer, so it cannot report
// how many bytes arrived.
func (a *Adapter) RequestOffset(ctx context.Context, session *assetstore.UploadSession) (int64, error) {
	return 0, assetstore.ErrUnsupportedOperation
}
