// Package assetstore defines the backend-neutral contracts for delegating
// physical storage of binary content to a remote object-storage provider
// while file metadata stays in the caller's own system of record.
//
// An Adapter grants clients cryptographically signed, time-limited
// permission to move bytes directly against the provider's HTTP API. The
// adapter itself never proxies upload or download traffic; it only performs
// the short metadata-only provider calls needed to validate a configuration
// and to drive a multipart upload (initiate, complete, abort).
//
// A Service composes an Adapter with session and file repositories so that
// upload state survives across HTTP requests: the process that issues a
// signed part request is not necessarily the one that later records the
// part's etag or completes the upload.
package assetstore
