package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/tendant/asset-store/pkg/assetstore"
)

// FinalizeUpload converts a completed session into a durable file record.
// The checksum is the provider etag captured when the multipart upload was
// assembled, or the sole part's etag; no extra provider round-trip is made.
func (a *Adapter) FinalizeUpload(ctx context.Context, session *assetstore.UploadSession) (*assetstore.FileRecord, error) {
	switch session.Status {
	case assetstore.SessionStatusCompleted, assetstore.SessionStatusFinalized:
	default:
		return nil, &assetstore.StateError{Op: "finalize", Message: fmt.Sprintf("session is %s, not completed", session.Status)}
	}

	checksum := session.ETag
	if checksum == "" && len(session.Parts) == 1 {
		checksum = session.Parts[0].ETag
	}

	record := &assetstore.FileRecord{
		ID:           uuid.New(),
		SessionID:    session.ID,
		AssetstoreID: session.AssetstoreID,
		ObjectKey:    session.ObjectKey,
		SizeBytes:    session.SizeBytes,
		MimeType:     session.MimeType,
		FileName:     session.FileName,
		Checksum:     checksum,
		CreatedAt:    a.now(),
	}

	session.Status = assetstore.SessionStatusFinalized
	session.UpdatedAt = record.CreatedAt
	return record, nil
}

// AuthorizeDownload produces a signed GET for the stored object. A positive
// offset adds a byte-range header; the descriptor honors the same TTL and
// signing discipline as uploads.
func (a *Adapter) AuthorizeDownload(ctx context.Context, file *assetstore.FileRecord, offset int64) (*assetstore.SignedRequest, error) {
	if offset < 0 {
		return nil, &assetstore.StateError{Op: "download", Message: "offset must not be negative"}
	}

	signed := a.signer.getObject(file.ObjectKey, offset)
	return &signed, nil
}

// DeleteObject executes a signed DELETE against the object key. An already
// absent object is success, so repeated delete-on-cleanup stays idempotent.
func (a *Adapter) DeleteObject(ctx context.Context, file *assetstore.FileRecord) error {
	signed := a.signer.deleteObject(file.ObjectKey)

	resp, err := a.do(ctx, signed, nil)
	if err != nil {
		return &assetstore.ProviderError{Op: "delete object", Key: file.ObjectKey, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return &assetstore.ProviderError{Op: "delete object", Key: file.ObjectKey, Err: fmt.Errorf("unexpected status %s", resp.Status)}
}

// Upload ingests server-generated content through the SDK upload manager.
// The direct-upload path never passes bytes through the server; this exists
// for content the server itself produces, such as derived artifacts.
func (a *Adapter) Upload(ctx context.Context, objectKey string, r io.Reader, mimeType string) error {
	client, err := a.sdkClient(ctx)
	if err != nil {
		return &assetstore.ProviderError{Op: "upload", Key: objectKey, Err: err}
	}

	uploader := manager.NewUploader(client)
	input := &awss3.PutObjectInput{
		Bucket: aws.String(a.store.S3.Bucket),
		Key:    aws.String(objectKey),
		Body:   r,
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}

	if _, err := uploader.Upload(ctx, input); err != nil {
		return &assetstore.ProviderError{Op: "upload", Key: objectKey, Err: err}
	}
	return nil
}
