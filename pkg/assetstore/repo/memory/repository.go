// Package memory provides in-memory session and file repositories, useful
// for tests and single-process development servers.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tendant/asset-store/pkg/assetstore"
)

// Repository implements assetstore.SessionRepository and
// assetstore.FileRepository using in-memory storage.
type Repository struct {
	mu             sync.RWMutex
	sessions       map[uuid.UUID]*assetstore.UploadSession
	files          map[uuid.UUID]*assetstore.FileRecord
	filesBySession map[uuid.UUID]uuid.UUID
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		sessions:       make(map[uuid.UUID]*assetstore.UploadSession),
		files:          make(map[uuid.UUID]*assetstore.FileRecord),
		filesBySession: make(map[uuid.UUID]uuid.UUID),
	}
}

// Session operations

func (r *Repository) CreateSession(ctx context.Context, session *assetstore.UploadSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = copySession(session)
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*assetstore.UploadSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, assetstore.ErrSessionNotFound
	}
	return copySession(session), nil
}

func (r *Repository) UpdateSession(ctx context.Context, session *assetstore.UploadSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; !exists {
		return assetstore.ErrSessionNotFound
	}
	r.sessions[session.ID] = copySession(session)
	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return assetstore.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// File operations

func (r *Repository) CreateFile(ctx context.Context, file *assetstore.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fileCopy := *file
	r.files[file.ID] = &fileCopy
	r.filesBySession[file.SessionID] = file.ID
	return nil
}

func (r *Repository) GetFile(ctx context.Context, id uuid.UUID) (*assetstore.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, exists := r.files[id]
	if !exists {
		return nil, assetstore.ErrFileNotFound
	}
	fileCopy := *file
	return &fileCopy, nil
}

func (r *Repository) GetFileBySession(ctx context.Context, sessionID uuid.UUID) (*assetstore.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.filesBySession[sessionID]
	if !exists {
		return nil, assetstore.ErrFileNotFound
	}
	file, exists := r.files[id]
	if !exists {
		return nil, assetstore.ErrFileNotFound
	}
	fileCopy := *file
	return &fileCopy, nil
}

func (r *Repository) DeleteFile(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, exists := r.files[id]
	if !exists {
		return assetstore.ErrFileNotFound
	}
	delete(r.filesBySession, file.SessionID)
	delete(r.files, id)
	return nil
}

// copySession clones a session, including its part list, so callers cannot
// mutate stored state through shared slices.
func copySession(session *assetstore.UploadSession) *assetstore.UploadSession {
	sessionCopy := *session
	if session.Parts != nil {
		sessionCopy.Parts = make([]assetstore.Part, len(session.Parts))
		copy(sessionCopy.Parts, session.Parts)
	}
	return &sessionCopy
}
