package assetstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedParts(t *testing.T) {
	const mib = int64(1024 * 1024)

	tests := []struct {
		name    string
		session UploadSession
		want    int
	}{
		{"single shot", UploadSession{SizeBytes: 10 * mib}, 1},
		{"exact multiple", UploadSession{Chunked: true, ChunkSizeBytes: 64 * mib, SizeBytes: 128 * mib}, 2},
		{"trailing partial part", UploadSession{Chunked: true, ChunkSizeBytes: 64 * mib, SizeBytes: 128*mib + 1}, 3},
		{"exactly one chunk", UploadSession{Chunked: true, ChunkSizeBytes: 64 * mib, SizeBytes: 64 * mib}, 1},
		{"chunked zero size", UploadSession{Chunked: true, ChunkSizeBytes: 64 * mib, SizeBytes: 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.ExpectedParts())
		})
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	assert.False(t, SessionStatusCreated.Terminal())
	assert.False(t, SessionStatusUploading.Terminal())
	assert.False(t, SessionStatusCompleted.Terminal())
	assert.True(t, SessionStatusFinalized.Terminal())
	assert.True(t, SessionStatusAborted.Terminal())
}
