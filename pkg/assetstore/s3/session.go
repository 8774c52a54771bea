package s3

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/asset-store/pkg/assetstore"
)

// InitiateUpload allocates a fresh object key and creates the upload
// session. Uploads at or above the chunk threshold become multipart: the
// adapter executes the signed initiate POST itself (a metadata-only provider
// call) and captures the provider-assigned upload id into the session before
// returning. Smaller uploads get a single signed PUT and involve no provider
// round-trip.
func (a *Adapter) InitiateUpload(ctx context.Context, req assetstore.UploadRequest) (*assetstore.UploadSession, *assetstore.SignedRequest, error) {
	if req.SizeBytes < 0 {
		return nil, nil, &assetstore.ValidationError{Field: "size", Message: "declared size must not be negative"}
	}

	now := a.now()
	session := &assetstore.UploadSession{
		ID:           uuid.New(),
		AssetstoreID: a.store.ID,
		Behavior:     BackendName,
		ObjectKey:    a.keys.GenerateKey(a.store.S3.Prefix),
		SizeBytes:    req.SizeBytes,
		MimeType:     req.MimeType,
		FileName:     req.FileName,
		Status:       assetstore.SessionStatusCreated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if req.SizeBytes >= a.chunkSize {
		session.Chunked = true
		session.ChunkSizeBytes = a.chunkSize

		signed := a.signer.initiateMultipart(session.ObjectKey)
		uploadID, err := a.executeInitiate(ctx, signed)
		if err != nil {
			return nil, nil, &assetstore.ProviderError{Op: "initiate multipart upload", Key: session.ObjectKey, Err: err}
		}
		session.MultipartUploadID = uploadID
		return session, &signed, nil
	}

	signed := a.signer.putObject(session.ObjectKey, req.MimeType)
	return session, &signed, nil
}

// NextChunk authorizes the PUT of the next part in part-number order.
func (a *Adapter) NextChunk(ctx context.Context, session *assetstore.UploadSession) (*assetstore.SignedRequest, error) {
	if err := checkChunkable("next chunk", session); err != nil {
		return nil, err
	}

	next := len(session.Parts) + 1
	if next > session.ExpectedParts() {
		return nil, &assetstore.StateError{Op: "next chunk", Message: "all expected parts already recorded"}
	}

	signed := a.signer.uploadPart(session.ObjectKey, session.MultipartUploadID, next)
	return &signed, nil
}

// RecordPart appends a completed part record. Parts must be reported in
// part-number order so completion can assemble them without gaps.
func (a *Adapter) RecordPart(ctx context.Context, session *assetstore.UploadSession, partNumber int, etag string) error {
	if err := checkChunkable("record part", session); err != nil {
		return err
	}
	if etag == "" {
		return &assetstore.StateError{Op: "record part", Message: "part etag must not be empty"}
	}

	want := len(session.Parts) + 1
	if want > session.ExpectedParts() {
		return &assetstore.StateError{Op: "record part", Message: "all expected parts already recorded"}
	}
	if partNumber != want {
		return &assetstore.StateError{Op: "record part", Message: fmt.Sprintf("expected part %d, got %d", want, partNumber)}
	}

	session.Parts = append(session.Parts, assetstore.Part{PartNumber: partNumber, ETag: etag})
	session.Status = assetstore.SessionStatusUploading
	session.UpdatedAt = a.now()
	return nil
}

// CompleteUpload finishes the session. For chunked sessions every expected
// part must have been recorded; the adapter then executes the signed
// complete POST, which atomically assembles the object from its parts, and
// captures the assembled object's etag. For single-shot sessions it merely
// acknowledges that the client's direct PUT finished.
func (a *Adapter) CompleteUpload(ctx context.Context, session *assetstore.UploadSession) error {
	if session.Status.Terminal() || session.Status == assetstore.SessionStatusCompleted {
		return &assetstore.StateError{Op: "complete", Message: fmt.Sprintf("session is already %s", session.Status)}
	}

	if !session.Chunked {
		session.Status = assetstore.SessionStatusCompleted
		session.UpdatedAt = a.now()
		return nil
	}

	if session.MultipartUploadID == "" {
		return &assetstore.StateError{Op: "complete", Message: "no multipart upload id captured"}
	}
	if got, want := len(session.Parts), session.ExpectedParts(); got != want {
		return &assetstore.StateError{Op: "complete", Message: fmt.Sprintf("%d of %d expected parts recorded", got, want)}
	}

	signed := a.signer.completeMultipart(session.ObjectKey, session.MultipartUploadID)
	etag, err := a.executeComplete(ctx, signed, session.Parts)
	if err != nil {
		return &assetstore.ProviderError{Op: "complete multipart upload", Key: session.ObjectKey, Err: err}
	}

	session.ETag = etag
	session.Status = assetstore.SessionStatusCompleted
	session.UpdatedAt = a.now()
	return nil
}

// AbortUpload discards the session. For chunked sessions with a captured
// upload id it executes the signed abort DELETE so the provider releases
// storage reserved for uncommitted parts; skipping this leaks storage
// indefinitely on most providers. Already-uploaded parts become orphaned and
// eligible for provider-side garbage collection.
func (a *Adapter) AbortUpload(ctx context.Context, session *assetstore.UploadSession) error {
	if session.Status == assetstore.SessionStatusFinalized {
		return &assetstore.StateError{Op: "abort", Message: "session is already finalized"}
	}

	if session.Chunked && session.MultipartUploadID != "" {
		signed := a.signer.abortMultipart(session.ObjectKey, session.MultipartUploadID)
		if err := a.executeAbort(ctx, signed); err != nil {
			return &assetstore.ProviderError{Op: "abort multipart upload", Key: session.ObjectKey, Err: err}
		}
	}

	session.Status = assetstore.SessionStatusAborted
	session.UpdatedAt = a.now()
	return nil
}

func checkChunkable(op string, session *assetstore.UploadSession) error {
	if !session.Chunked {
		return &assetstore.StateError{Op: op, Message: "session is not chunked"}
	}
	if session.MultipartUploadID == "" {
		return &assetstore.StateError{Op: op, Message: "no multipart upload id captured"}
	}
	if session.Status.Terminal() || session.Status == assetstore.SessionStatusCompleted {
		return &assetstore.StateError{Op: op, Message: fmt.Sprintf("session is already %s", session.Status)}
	}
	return nil
}

// Multipart wire bodies, per the provider's REST API.

type initiateMultipartResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	UploadID string   `xml:"UploadId"`
}

type completeMultipartUpload struct {
	XMLName xml.Name        `xml:"CompleteMultipartUpload"`
	Parts   []completedPart `xml:"Part"`
}

type completedPart struct {
	PartNumber int    `xml:"PartNumber"`
	ETag       string `xml:"ETag"`
}

type completeMultipartResult struct {
	XMLName xml.Name `xml:"CompleteMultipartUploadResult"`
	ETag    string   `xml:"ETag"`
}

// do forwards a signed request through the adapter's HTTP client.
func (a *Adapter) do(ctx context.Context, signed assetstore.SignedRequest, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, signed.Method, signed.URL, body)
	if err != nil {
		return nil, err
	}
	for name, value := range signed.Headers {
		req.Header.Set(name, value)
	}
	return a.httpClient.Do(req)
}

func (a *Adapter) executeInitiate(ctx context.Context, signed assetstore.SignedRequest) (string, error) {
	resp, err := a.do(ctx, signed, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	var result initiateMultipartResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode initiate response: %w", err)
	}
	if result.UploadID == "" {
		return "", errors.New("initiate response carried no upload id")
	}
	return result.UploadID, nil
}

func (a *Adapter) executeComplete(ctx context.Context, signed assetstore.SignedRequest, parts []assetstore.Part) (string, error) {
	payload := completeMultipartUpload{Parts: make([]completedPart, 0, len(parts))}
	for _, part := range parts {
		payload.Parts = append(payload.Parts, completedPart{PartNumber: part.PartNumber, ETag: part.ETag})
	}

	body, err := xml.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode complete request: %w", err)
	}

	resp, err := a.do(ctx, signed, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	var result completeMultipartResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode complete response: %w", err)
	}
	return strings.Trim(result.ETag, "\""), nil
}

func (a *Adapter) executeAbort(ctx context.Context, signed assetstore.SignedRequest) error {
	resp, err := a.do(ctx, signed, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		// An upload the provider no longer knows about is already released.
		return nil
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}
