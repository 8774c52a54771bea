// Package postgres provides pgx-backed session and file repositories.
//
// Expected schema:
//
//	CREATE TABLE upload_session (
//	    id                  UUID PRIMARY KEY,
//	    assetstore_id       UUID NOT NULL,
//	    behavior            TEXT NOT NULL,
//	    object_key          TEXT NOT NULL,
//	    chunked             BOOLEAN NOT NULL DEFAULT FALSE,
//	    chunk_size_bytes    BIGINT NOT NULL DEFAULT 0,
//	    size_bytes          BIGINT NOT NULL,
//	    mime_type           TEXT,
//	    file_name           TEXT,
//	    multipart_upload_id TEXT,
//	    parts               JSONB NOT NULL DEFAULT '[]',
//	    status              TEXT NOT NULL,
//	    etag                TEXT,
//	    created_at          TIMESTAMPTZ NOT NULL,
//	    updated_at          TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE file_record (
//	    id            UUID PRIMARY KEY,
//	    session_id    UUID NOT NULL UNIQUE,
//	    assetstore_id UUID NOT NULL,
//	    object_key    TEXT NOT NULL,
//	    size_bytes    BIGINT NOT NULL,
//	    mime_type     TEXT,
//	    file_name     TEXT,
//	    checksum      TEXT,
//	    created_at    TIMESTAMPTZ NOT NULL
//	);
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/asset-store/pkg/assetstore"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements assetstore.SessionRepository and
// assetstore.FileRepository using PostgreSQL.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Session operations

func (r *Repository) CreateSession(ctx context.Context, session *assetstore.UploadSession) error {
	parts, err := json.Marshal(session.Parts)
	if err != nil {
		return fmt.Errorf("encode session parts: %w", err)
	}

	query := `
		INSERT INTO upload_session (
			id, assetstore_id, behavior, object_key, chunked, chunk_size_bytes,
			size_bytes, mime_type, file_name, multipart_upload_id, parts,
			status, etag, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.db.Exec(ctx, query,
		session.ID, session.AssetstoreID, session.Behavior, session.ObjectKey,
		session.Chunked, session.ChunkSizeBytes, session.SizeBytes,
		session.MimeType, session.FileName, session.MultipartUploadID, parts,
		string(session.Status), session.ETag, session.CreatedAt, session.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create session", err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*assetstore.UploadSession, error) {
	query := `
		SELECT id, assetstore_id, behavior, object_key, chunked, chunk_size_bytes,
		       size_bytes, mime_type, file_name, multipart_upload_id, parts,
		       status, etag, created_at, updated_at
		FROM upload_session WHERE id = $1`

	var session assetstore.UploadSession
	var parts []byte
	var status string

	err := r.db.QueryRow(ctx, query, id).Scan(
		&session.ID, &session.AssetstoreID, &session.Behavior, &session.ObjectKey,
		&session.Chunked, &session.ChunkSizeBytes, &session.SizeBytes,
		&session.MimeType, &session.FileName, &session.MultipartUploadID, &parts,
		&status, &session.ETag, &session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, assetstore.ErrSessionNotFound
		}
		return nil, r.handlePostgresError("get session", err)
	}

	session.Status = assetstore.SessionStatus(status)
	if len(parts) > 0 {
		if err := json.Unmarshal(parts, &session.Parts); err != nil {
			return nil, fmt.Errorf("decode session parts: %w", err)
		}
	}
	return &session, nil
}

func (r *Repository) UpdateSession(ctx context.Context, session *assetstore.UploadSession) error {
	parts, err := json.Marshal(session.Parts)
	if err != nil {
		return fmt.Errorf("encode session parts: %w", err)
	}

	query := `
		UPDATE upload_session SET
			multipart_upload_id = $2, parts = $3, status = $4, etag = $5,
			updated_at = $6
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		session.ID, session.MultipartUploadID, parts, string(session.Status),
		session.ETag, session.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("update session", err)
	}
	if tag.RowsAffected() == 0 {
		return assetstore.ErrSessionNotFound
	}
	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM upload_session WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete session", err)
	}
	if tag.RowsAffected() == 0 {
		return assetstore.ErrSessionNotFound
	}
	return nil
}

// File operations

func (r *Repository) CreateFile(ctx context.Context, file *assetstore.FileRecord) error {
	query := `
		INSERT INTO file_record (
			id, session_id, assetstore_id, object_key, size_bytes,
			mime_type, file_name, checksum, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		file.ID, file.SessionID, file.AssetstoreID, file.ObjectKey,
		file.SizeBytes, file.MimeType, file.FileName, file.Checksum,
		file.CreatedAt)

	if err != nil {
		return r.handlePostgresError("create file", err)
	}
	return nil
}

func (r *Repository) GetFile(ctx context.Context, id uuid.UUID) (*assetstore.FileRecord, error) {
	return r.getFile(ctx, `WHERE id = $1`, id)
}

func (r *Repository) GetFileBySession(ctx context.Context, sessionID uuid.UUID) (*assetstore.FileRecord, error) {
	return r.getFile(ctx, `WHERE session_id = $1`, sessionID)
}

func (r *Repository) getFile(ctx context.Context, where string, arg interface{}) (*assetstore.FileRecord, error) {
	query := `
		SELECT id, session_id, assetstore_id, object_key, size_bytes,
		       mime_type, file_name, checksum, created_at
		FROM file_record ` + where

	var file assetstore.FileRecord
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&file.ID, &file.SessionID, &file.AssetstoreID, &file.ObjectKey,
		&file.SizeBytes, &file.MimeType, &file.FileName, &file.Checksum,
		&file.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, assetstore.ErrFileNotFound
		}
		return nil, r.handlePostgresError("get file", err)
	}
	return &file, nil
}

func (r *Repository) DeleteFile(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM file_record WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete file", err)
	}
	if tag.RowsAffected() == 0 {
		return assetstore.ErrFileNotFound
	}
	return nil
}
