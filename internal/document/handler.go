package handler

import (
	"encoding/json"
	"net/http"

	"voxnote/internal/document/model"
	"voxnote/internal/document/service"
	"voxnote/pkg/apperr"
	"voxnote/pkg/logger"
)

type DocumentHandler struct {
	Service *service.DocumentService
}

func NewDocumentHandler(service *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: service}
}

// GetDocument answers GET /api/documents?voiceNoteId=...; with no id it lists
// every document of the caller.
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	voiceNoteID := r.URL.Query().Get("voiceNoteId")
	if voiceNoteID == "" {
		docs, err := h.Service.List(r.Context())
		if err != nil {
			writeError(w, "list", err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
		return
	}

	doc, err := h.Service.Get(r.Context(), voiceNoteID)
	if err != nil {
		writeError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, model.GetDocResponse{Document: doc})
}

func (h *DocumentHandler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.SaveDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.VoiceNoteID == "" {
		http.Error(w, "Missing voice_note_id", http.StatusBadRequest)
		return
	}

	doc, err := h.Service.Save(r.Context(), req.VoiceNoteID, req.Content)
	if err != nil {
		writeError(w, "save", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	voiceNoteID, ok := requireVoiceNoteID(w, r)
	if !ok {
		return
	}

	resp, err := h.Service.Summarize(r.Context(), voiceNoteID)
	if err != nil {
		writeError(w, "summarize", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DocumentHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	voiceNoteID, ok := requireVoiceNoteID(w, r)
	if !ok {
		return
	}

	locator, err := h.Service.Export(r.Context(), voiceNoteID)
	if err != nil {
		writeError(w, "export", err)
		return
	}
	writeJSON(w, http.StatusOK, model.ExportResponse{MarkdownURL: locator})
}

func (h *DocumentHandler) Send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VoiceNoteID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.Service.Send(r.Context(), req.VoiceNoteID, req.To)
	if err != nil {
		writeError(w, "send", err)
		return
	}
	writeJSON(w, http.StatusOK, model.SendResponse{ID: id})
}

func requireVoiceNoteID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("voiceNoteId")
	if id == "" {
		http.Error(w, "Missing voiceNoteId parameter", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func writeError(w http.ResponseWriter, action string, err error) {
	logger.Sugar.Errorf("Handler: Failed to %s document: %v", action, err)
	http.Error(w, apperr.UserMessage(err), apperr.HTTPStatus(err))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
