package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/asset-store/pkg/assetstore"
	"github.com/tendant/asset-store/pkg/assetstore/repo/memory"
	"github.com/tendant/asset-store/pkg/assetstore/s3"
)

// stubProvider answers the adapter's multipart metadata calls.
type stubProvider struct{}

func (stubProvider) Do(req *http.Request) (*http.Response, error) {
	var status int
	var body string
	switch {
	case req.Method == http.MethodPost && strings.HasSuffix(req.URL.RawQuery, "uploads"):
		status = http.StatusOK
		body = `<InitiateMultipartUploadResult><UploadId>upload-1</UploadId></InitiateMultipartUploadResult>`
	case req.Method == http.MethodPost:
		status = http.StatusOK
		body = `<CompleteMultipartUploadResult><ETag>&#34;assembled&#34;</ETag></CompleteMultipartUploadResult>`
	default:
		status = http.StatusNoContent
	}
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	adapter, err := s3.New(&assetstore.Assetstore{
		Backend: assetstore.BackendS3,
		S3: &assetstore.S3Info{
			Bucket:      "b",
			Prefix:      "x",
			AccessKeyID: "a",
			Secret:      "s",
		},
	}, s3.WithHTTPClient(stubProvider{}))
	require.NoError(t, err)

	repo := memory.New()
	service, err := assetstore.NewService(
		assetstore.WithAdapter(adapter),
		assetstore.WithSessionRepository(repo),
		assetstore.WithFileRepository(repo),
	)
	require.NoError(t, err)

	return NewHandler(service).Routes()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func initiate(t *testing.T, handler http.Handler, size int64) InitiateUploadResponse {
	t.Helper()
	var resp InitiateUploadResponse
	rec := doJSON(t, handler, http.MethodPost, "/uploads", InitiateUploadRequest{SizeBytes: size, FileName: "f.bin"}, &resp)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, resp.Session)
	require.NotNil(t, resp.Request)
	return resp
}

func TestInitiateUploadEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	resp := initiate(t, handler, 1024)
	assert.False(t, resp.Session.Chunked)
	assert.Equal(t, "PUT", resp.Request.Method)
	assert.NotEmpty(t, resp.Request.Headers["Authorization"])

	var loaded assetstore.UploadSession
	rec := doJSON(t, handler, http.MethodGet, "/uploads/"+resp.Session.ID.String(), nil, &loaded)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resp.Session.ObjectKey, loaded.ObjectKey)
}

func TestChunkedUploadEndpoints(t *testing.T) {
	handler := newTestHandler(t)
	resp := initiate(t, handler, 100_000_000)
	require.True(t, resp.Session.Chunked)
	base := "/uploads/" + resp.Session.ID.String()

	var signed assetstore.SignedRequest
	rec := doJSON(t, handler, http.MethodGet, base+"/chunk", nil, &signed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, signed.URL, "partNumber=1")

	// Out-of-order part reports conflict.
	rec = doJSON(t, handler, http.MethodPost, base+"/parts", RecordPartRequest{PartNumber: 2, ETag: `"e2"`}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var session assetstore.UploadSession
	rec = doJSON(t, handler, http.MethodPost, base+"/parts", RecordPartRequest{PartNumber: 1, ETag: `"e1"`}, &session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, session.Parts, 1)

	// Completing with a missing part reports conflict.
	rec = doJSON(t, handler, http.MethodPost, base+"/complete", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, base+"/parts", RecordPartRequest{PartNumber: 2, ETag: `"e2"`}, &session)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, base+"/complete", nil, &session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, assetstore.SessionStatusCompleted, session.Status)

	var record assetstore.FileRecord
	rec = doJSON(t, handler, http.MethodPost, base+"/finalize", nil, &record)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resp.Session.ObjectKey, record.ObjectKey)

	// Finalize is idempotent over the wire too.
	var again assetstore.FileRecord
	rec = doJSON(t, handler, http.MethodPost, base+"/finalize", nil, &again)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, record.ID, again.ID)
}

func TestDownloadAndDeleteEndpoints(t *testing.T) {
	handler := newTestHandler(t)
	resp := initiate(t, handler, 16)
	base := "/uploads/" + resp.Session.ID.String()

	rec := doJSON(t, handler, http.MethodPost, base+"/complete", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var record assetstore.FileRecord
	rec = doJSON(t, handler, http.MethodPost, base+"/finalize", nil, &record)
	require.Equal(t, http.StatusOK, rec.Code)

	var signed assetstore.SignedRequest
	rec = doJSON(t, handler, http.MethodGet, "/files/"+record.ID.String()+"/download?offset=512", nil, &signed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET", signed.Method)
	assert.Equal(t, "bytes=512-", signed.Headers["Range"])

	rec = doJSON(t, handler, http.MethodGet, "/files/"+record.ID.String()+"/download?offset=-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/files/"+record.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/files/"+record.ID.String()+"/download", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAbortEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	resp := initiate(t, handler, 100_000_000)

	rec := doJSON(t, handler, http.MethodDelete, "/uploads/"+resp.Session.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var session assetstore.UploadSession
	rec = doJSON(t, handler, http.MethodGet, "/uploads/"+resp.Session.ID.String(), nil, &session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, assetstore.SessionStatusAborted, session.Status)
}

func TestErrorMapping(t *testing.T) {
	handler := newTestHandler(t)

	t.Run("unknown session", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/uploads/11111111-2222-3333-4444-555555555555", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed session id", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/uploads/not-a-uuid", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("offset query unsupported by backend", func(t *testing.T) {
		resp := initiate(t, handler, 16)
		rec := doJSON(t, handler, http.MethodGet, "/uploads/"+resp.Session.ID.String()+"/offset", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("negative declared size", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/uploads", InitiateUploadRequest{SizeBytes: -5}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
