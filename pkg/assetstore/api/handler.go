// Package api exposes the upload session protocol over HTTP. Handlers only
// hand out signed request descriptors and session state; file bytes travel
// directly between the client and the storage provider.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/asset-store/pkg/assetstore"
)

// Handler handles HTTP requests for upload sessions and file records.
type Handler struct {
	service *assetstore.Service
}

// NewHandler creates a new assetstore handler.
func NewHandler(service *assetstore.Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the routes for the upload protocol.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/uploads", h.InitiateUpload)
	r.Get("/uploads/{sessionID}", h.GetSession)
	r.Get("/uploads/{sessionID}/chunk", h.NextChunk)
	r.Post("/uploads/{sessionID}/parts", h.RecordPart)
	r.Post("/uploads/{sessionID}/complete", h.CompleteUpload)
	r.Post("/uploads/{sessionID}/finalize", h.FinalizeUpload)
	r.Get("/uploads/{sessionID}/offset", h.RequestOffset)
	r.Delete("/uploads/{sessionID}", h.AbortUpload)

	r.Get("/files/{fileID}/download", h.AuthorizeDownload)
	r.Delete("/files/{fileID}", h.DeleteFile)

	return r
}

// InitiateUploadRequest is the request body for starting an upload.
type InitiateUploadRequest struct {
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
	FileName  string `json:"file_name"`
}

// InitiateUploadResponse carries the new session and the first signed
// request the client must perform against the provider.
type InitiateUploadResponse struct {
	Session *assetstore.UploadSession `json:"session"`
	Request *assetstore.SignedRequest `json:"request"`
}

// RecordPartRequest reports one completed part of a chunked upload.
type RecordPartRequest struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// InitiateUpload creates a new upload session.
func (h *Handler) InitiateUpload(w http.ResponseWriter, r *http.Request) {
	var req InitiateUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, signed, err := h.service.InitiateUpload(r.Context(), assetstore.UploadRequest{
		SizeBytes: req.SizeBytes,
		MimeType:  req.MimeType,
		FileName:  req.FileName,
	})
	if err != nil {
		h.renderError(w, r, "initiate upload", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, InitiateUploadResponse{Session: session, Request: signed})
}

// GetSession returns the persisted state of an upload session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.parseID(w, r, "sessionID")
	if !ok {
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, "get session", err)
		return
	}
	render.JSON(w, r, session)
}

// NextChunk returns the signed request for the next part of a chunked
// session.
func (h *Handler) NextChunk(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.parseID(w, r, "sessionID")
	if !ok {
		return
	}

	signed, err := h.service.NextChunk(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, "next chunk", err)
		return
	}
	render.JSON(w, r, signed)
}

// RecordPart records a completed part's etag against the session.
func (h *Handler) RecordPart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.parseID(w, r, "sessionID")
	if !ok {
		return
	}

	var req RecordPartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := h.service.RecordPart(r.Context(), sessionID, req.PartNumber, req.ETag)
	if err != nil {
		h.renderError(w, r, "record part", err)
		return
	}
	render.JSON(w, r, session)
}

// CompleteUpload completes the session against the provider.
func (h *Handler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.parseID(w, r, "sessionID")
	if !ok {
		return
	}

	session, err := h.service.CompleteUpload(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, "complete upload", err)
		return
	}
	render.JSON(w, r, session)
}

// FinalizeUpload converts a completed session into a durable file record.
func (h *Handler) FinalizeUpload(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.parseID(w, r, "sessionID")
	if !ok {
		return
	}

	record, err := h.service.FinalizeUpload(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, "finalize upload", err)
		return
	}
	render.JSON(w, r, record)
}

// RequestOffset reports the resume offset for an interrupted upload.
func (h *Handler) RequestOffset(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.parseID(w, r, "sessionID")
	if !ok {
		return
	}

	offset, err := h.service.RequestOffset(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, "request offset", err)
		return
	}
	render.JSON(w, r, map[string]int64{"offset": offset})
}

// AbortUpload discards the session and releases provider-side storage.
func (h *Handler) AbortUpload(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.parseID(w, r, "sessionID")
	if !ok {
		return
	}

	if err := h.service.AbortUpload(r.Context(), sessionID); err != nil {
		h.renderError(w, r, "abort upload", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AuthorizeDownload returns a signed GET for the file, honoring an optional
// byte offset query parameter.
func (h *Handler) AuthorizeDownload(w http.ResponseWriter, r *http.Request) {
	fileID, ok := h.parseID(w, r, "fileID")
	if !ok {
		return
	}

	var offset int64
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}
		offset = parsed
	}

	signed, err := h.service.AuthorizeDownload(r.Context(), fileID, offset)
	if err != nil {
		h.renderError(w, r, "authorize download", err)
		return
	}
	render.JSON(w, r, signed)
}

// DeleteFile deletes the file's object and record.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := h.parseID(w, r, "fileID")
	if !ok {
		return
	}

	if err := h.service.DeleteFile(r.Context(), fileID); err != nil {
		h.renderError(w, r, "delete file", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		http.Error(w, "invalid "+param, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// renderError maps domain errors onto HTTP statuses. Provider detail is
// logged but never surfaced to clients.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var validationErr *assetstore.ValidationError
	var stateErr *assetstore.StateError
	var providerErr *assetstore.ProviderError

	switch {
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &stateErr):
		http.Error(w, stateErr.Error(), http.StatusConflict)
	case errors.Is(err, assetstore.ErrUnsupportedOperation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, assetstore.ErrSessionNotFound), errors.Is(err, assetstore.ErrFileNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &providerErr):
		slog.Error("provider call failed", "op", op, "error", err)
		http.Error(w, "storage provider unavailable", http.StatusBadGateway)
	default:
		slog.Error("assetstore operation failed", "op", op, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
