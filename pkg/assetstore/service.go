package assetstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Service composes an adapter with session and file repositories. It owns
// the persistence of upload state between protocol steps so that the server
// process issuing a signed request does not have to be the one that later
// records parts or completes the session.
type Service struct {
	adapter  Adapter
	sessions SessionRepository
	files    FileRepository
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAdapter sets the backend adapter.
func WithAdapter(adapter Adapter) ServiceOption {
	return func(s *Service) { s.adapter = adapter }
}

// WithSessionRepository sets the upload session repository.
func WithSessionRepository(repo SessionRepository) ServiceOption {
	return func(s *Service) { s.sessions = repo }
}

// WithFileRepository sets the file record repository.
func WithFileRepository(repo FileRepository) ServiceOption {
	return func(s *Service) { s.files = repo }
}

// NewService creates a Service from the given options. An adapter and both
// repositories are required.
func NewService(opts ...ServiceOption) (*Service, error) {
	svc := &Service{}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}

	if svc.adapter == nil {
		return nil, errors.New("adapter is required")
	}
	if svc.sessions == nil {
		return nil, errors.New("session repository is required")
	}
	if svc.files == nil {
		return nil, errors.New("file repository is required")
	}
	return svc, nil
}

// ValidateAssetstore runs the adapter's configuration validation, including
// the live write probe.
func (s *Service) ValidateAssetstore(ctx context.Context) (*Assetstore, error) {
	return s.adapter.ValidateInfo(ctx)
}

// InitiateUpload creates and persists a new upload session and returns it
// together with the first signed request.
func (s *Service) InitiateUpload(ctx context.Context, req UploadRequest) (*UploadSession, *SignedRequest, error) {
	session, signed, err := s.adapter.InitiateUpload(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("persist upload session: %w", err)
	}
	return session, signed, nil
}

// GetSession loads a persisted upload session.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*UploadSession, error) {
	return s.sessions.GetSession(ctx, id)
}

// NextChunk authorizes the upload of the next part of a chunked session.
func (s *Service) NextChunk(ctx context.Context, sessionID uuid.UUID) (*SignedRequest, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.adapter.NextChunk(ctx, session)
}

// RecordPart records a completed part's etag against the session and
// persists the updated part list.
func (s *Service) RecordPart(ctx context.Context, sessionID uuid.UUID, partNumber int, etag string) (*UploadSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.adapter.RecordPart(ctx, session, partNumber, etag); err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("persist upload session: %w", err)
	}
	return session, nil
}

// CompleteUpload completes the session against the provider and persists the
// resulting state.
func (s *Service) CompleteUpload(ctx context.Context, sessionID uuid.UUID) (*UploadSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.adapter.CompleteUpload(ctx, session); err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("persist upload session: %w", err)
	}
	return session, nil
}

// AbortUpload releases provider-side storage reserved for the session's
// uncommitted parts and marks the session aborted.
func (s *Service) AbortUpload(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.adapter.AbortUpload(ctx, session); err != nil {
		return err
	}
	return s.sessions.UpdateSession(ctx, session)
}

// FinalizeUpload converts a completed session into a durable file record.
// Finalizing an already-finalized session returns the existing record.
func (s *Service) FinalizeUpload(ctx context.Context, sessionID uuid.UUID) (*FileRecord, error) {
	if existing, err := s.files.GetFileBySession(ctx, sessionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrFileNotFound) {
		return nil, err
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	record, err := s.adapter.FinalizeUpload(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := s.files.CreateFile(ctx, record); err != nil {
		return nil, fmt.Errorf("persist file record: %w", err)
	}
	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("persist upload session: %w", err)
	}
	return record, nil
}

// AuthorizeDownload produces a signed GET for a stored file, optionally
// starting at a byte offset.
func (s *Service) AuthorizeDownload(ctx context.Context, fileID uuid.UUID, offset int64) (*SignedRequest, error) {
	file, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return s.adapter.AuthorizeDownload(ctx, file, offset)
}

// DeleteFile removes the file's object from the provider and drops its
// record. Deleting an already-deleted object is success.
func (s *Service) DeleteFile(ctx context.Context, fileID uuid.UUID) error {
	file, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	if err := s.adapter.DeleteObject(ctx, file); err != nil {
		return err
	}
	return s.files.DeleteFile(ctx, fileID)
}

// RequestOffset reports the resume offset for an interrupted upload when the
// backend supports the query.
func (s *Service) RequestOffset(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return s.adapter.RequestOffset(ctx, session)
}

// Upload ingests server-generated content through the adapter when it
// implements the optional Ingester capability.
func (s *Service) Upload(ctx context.Context, objectKey string, r io.Reader, mimeType string) error {
	ingester, ok := s.adapter.(Ingester)
	if !ok {
		return ErrUnsupportedOperation
	}
	return ingester.Upload(ctx, objectKey, r, mimeType)
}
