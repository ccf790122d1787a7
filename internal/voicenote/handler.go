package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"voxnote/internal/voicenote/model"
	"voxnote/internal/voicenote/service"
	"voxnote/pkg/apperr"
	"voxnote/pkg/logger"
)

type VoiceNoteHandler struct {
	Service        *service.VoiceNoteService
	MaxUploadBytes int64
}

func NewVoiceNoteHandler(service *service.VoiceNoteService, maxUploadBytes int64) *VoiceNoteHandler {
	return &VoiceNoteHandler{Service: service, MaxUploadBytes: maxUploadBytes}
}

func (h *VoiceNoteHandler) StartRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID, err := h.Service.StartRecording(r.Context())
	if err != nil {
		writeError(w, "start recording", err)
		return
	}
	writeJSON(w, http.StatusCreated, model.RecordingStartResponse{SessionID: sessionID})
}

// AppendChunk takes the raw chunk bytes as the request body.
func (h *VoiceNoteHandler) AppendChunk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "Missing session parameter", http.StatusBadRequest)
		return
	}

	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxUploadBytes))
	if err != nil {
		http.Error(w, "Chunk too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err := h.Service.AppendChunk(r.Context(), sessionID, chunk); err != nil {
		writeError(w, "append chunk", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VoiceNoteHandler) StopRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "Missing session parameter", http.StatusBadRequest)
		return
	}

	note, err := h.Service.StopRecording(r.Context(), sessionID)
	if err != nil {
		writeError(w, "stop recording", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// Upload accepts a multipart form with the audio in the "file" field.
func (h *VoiceNoteHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	note, err := h.Service.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, "upload", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *VoiceNoteHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.DraftRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // Ignore error, default to empty

	note, err := h.Service.CreateDraft(r.Context(), req.Title)
	if err != nil {
		writeError(w, "create draft", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *VoiceNoteHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	notes, err := h.Service.List(r.Context())
	if err != nil {
		writeError(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *VoiceNoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	note, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *VoiceNoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	var req model.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	note, err := h.Service.Update(r.Context(), id, req.Patch())
	if err != nil {
		writeError(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *VoiceNoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Voice note deleted successfully"))
}

func (h *VoiceNoteHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	text, err := h.Service.Transcribe(r.Context(), id)
	if err != nil {
		writeError(w, "transcribe", err)
		return
	}
	writeJSON(w, http.StatusOK, model.TranscriptResponse{Transcript: text})
}

func (h *VoiceNoteHandler) AudioURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	resp, err := h.Service.AudioURL(r.Context(), id)
	if err != nil {
		writeError(w, "audio url", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func writeError(w http.ResponseWriter, action string, err error) {
	logger.Sugar.Errorf("Handler: Failed to %s voice note: %v", action, err)
	http.Error(w, apperr.UserMessage(err), apperr.HTTPStatus(err))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
