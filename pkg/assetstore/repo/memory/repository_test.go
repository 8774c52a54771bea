package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/asset-store/pkg/assetstore"
)

func newSession() *assetstore.UploadSession {
	return &assetstore.UploadSession{
		ID:           uuid.New(),
		AssetstoreID: uuid.New(),
		Behavior:     assetstore.BackendS3,
		ObjectKey:    "x/aa/bb/id",
		Chunked:      true,
		SizeBytes:    1024,
		Status:       assetstore.SessionStatusCreated,
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := New()
	session := newSession()

	require.NoError(t, repo.CreateSession(ctx, session))

	loaded, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ObjectKey, loaded.ObjectKey)

	loaded.Parts = append(loaded.Parts, assetstore.Part{PartNumber: 1, ETag: `"e1"`})
	loaded.Status = assetstore.SessionStatusUploading
	require.NoError(t, repo.UpdateSession(ctx, loaded))

	reloaded, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, assetstore.SessionStatusUploading, reloaded.Status)
	require.Len(t, reloaded.Parts, 1)

	require.NoError(t, repo.DeleteSession(ctx, session.ID))
	_, err = repo.GetSession(ctx, session.ID)
	require.ErrorIs(t, err, assetstore.ErrSessionNotFound)
}

func TestSessionNotFound(t *testing.T) {
	ctx := context.Background()
	repo := New()

	_, err := repo.GetSession(ctx, uuid.New())
	require.ErrorIs(t, err, assetstore.ErrSessionNotFound)

	err = repo.UpdateSession(ctx, newSession())
	require.ErrorIs(t, err, assetstore.ErrSessionNotFound)

	err = repo.DeleteSession(ctx, uuid.New())
	require.ErrorIs(t, err, assetstore.ErrSessionNotFound)
}

func TestSessionCopyIsolation(t *testing.T) {
	ctx := context.Background()
	repo := New()
	session := newSession()
	session.Parts = []assetstore.Part{{PartNumber: 1, ETag: `"e1"`}}

	require.NoError(t, repo.CreateSession(ctx, session))

	// Mutating the caller's session or a loaded copy must not leak into
	// stored state.
	session.Parts[0].ETag = "mutated"
	loaded, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, `"e1"`, loaded.Parts[0].ETag)

	loaded.Parts[0].ETag = "also mutated"
	reloaded, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, `"e1"`, reloaded.Parts[0].ETag)
}

func TestFileLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := New()

	file := &assetstore.FileRecord{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		ObjectKey: "x/aa/bb/id",
		SizeBytes: 42,
	}
	require.NoError(t, repo.CreateFile(ctx, file))

	byID, err := repo.GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.ObjectKey, byID.ObjectKey)

	bySession, err := repo.GetFileBySession(ctx, file.SessionID)
	require.NoError(t, err)
	assert.Equal(t, file.ID, bySession.ID)

	require.NoError(t, repo.DeleteFile(ctx, file.ID))
	_, err = repo.GetFile(ctx, file.ID)
	require.ErrorIs(t, err, assetstore.ErrFileNotFound)
	_, err = repo.GetFileBySession(ctx, file.SessionID)
	require.ErrorIs(t, err, assetstore.ErrFileNotFound)

	err = repo.DeleteFile(ctx, file.ID)
	require.ErrorIs(t, err, assetstore.ErrFileNotFound)
}
