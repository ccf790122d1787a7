package router

import (
	"database/sql"
	"net/http"

	"voxnote/config"
	"voxnote/internal/asset"
	"voxnote/internal/capture"
	"voxnote/internal/delivery"
	docHandler "voxnote/internal/document"
	docrepo "voxnote/internal/document/repository"
	docservice "voxnote/internal/document/service"
	"voxnote/internal/summarization"
	"voxnote/internal/transcription"
	vnHandler "voxnote/internal/voicenote"
	vnrepo "voxnote/internal/voicenote/repository"
	vnservice "voxnote/internal/voicenote/service"
	"voxnote/middleware"
	"voxnote/socket"

	"github.com/resend/resend-go/v2"
	"github.com/sashabaranov/go-openai"
)

// Setup wires repositories, jobs and services and returns the HTTP handler
// together with the hub, whose Run loop the caller starts.
func Setup(cfg *config.Config, db *sql.DB) (http.Handler, *socket.Hub, error) {
	store, err := asset.NewDiskStore(cfg.AssetDir, cfg.AssetBaseURL, cfg.AssetSigningKey)
	if err != nil {
		return nil, nil, err
	}

	aiConfig := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		aiConfig.BaseURL = cfg.OpenAIBaseURL
	}
	ai := openai.NewClientWithConfig(aiConfig)

	noteRepo := vnrepo.NewVoiceNoteRepository(db)
	docRepo := docrepo.NewDocumentRepository(db)

	transcriber := transcription.NewJob(noteRepo, store, transcription.NewOpenAIEngine(ai, cfg.TranscriptionModel))
	summarizer := summarization.NewJob(docRepo, summarization.NewOpenAIEngine(ai, cfg.SummaryModel))
	mailer := delivery.NewResendSender(resend.NewClient(cfg.ResendKey), cfg.MailFrom)

	// The hub saves through the document service, which in turn publishes
	// to the hub; the service gets its notifier once the hub exists.
	docService := docservice.NewDocumentService(docRepo, noteRepo, store, summarizer, mailer, nil)
	hub := socket.NewHub(noteRepo, docService, cfg.AutosaveDebounce)
	docService.Hub = hub

	noteService := vnservice.NewVoiceNoteService(noteRepo, store, transcriber, capture.NewRegistry(cfg.RecordingIdleTimeout, cfg.MaxUploadBytes), hub)

	notes := vnHandler.NewVoiceNoteHandler(noteService, cfg.MaxUploadBytes)
	docs := docHandler.NewDocumentHandler(docService)
	auth := middleware.AuthMiddleware(cfg.JWTSecret)

	mux := http.NewServeMux()

	// WebSocket
	mux.Handle("/ws", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r)
	})))

	// Signed asset reads carry their own token.
	mux.Handle("/assets/", store)

	// REST API
	mux.Handle("/api/recordings/start", auth(http.HandlerFunc(notes.StartRecording)))
	mux.Handle("/api/recordings/chunk", auth(http.HandlerFunc(notes.AppendChunk)))
	mux.Handle("/api/recordings/stop", auth(http.HandlerFunc(notes.StopRecording)))

	mux.Handle("/api/voice-notes", auth(http.HandlerFunc(notes.List)))
	mux.Handle("/api/voice-notes/get", auth(http.HandlerFunc(notes.Get)))
	mux.Handle("/api/voice-notes/upload", auth(http.HandlerFunc(notes.Upload)))
	mux.Handle("/api/voice-notes/draft", auth(http.HandlerFunc(notes.CreateDraft)))
	mux.Handle("/api/voice-notes/update", auth(http.HandlerFunc(notes.Update)))
	mux.Handle("/api/voice-notes/delete", auth(http.HandlerFunc(notes.Delete)))
	mux.Handle("/api/voice-notes/transcribe", auth(http.HandlerFunc(notes.Transcribe)))
	mux.Handle("/api/voice-notes/audio-url", auth(http.HandlerFunc(notes.AudioURL)))

	mux.Handle("/api/documents", auth(http.HandlerFunc(docs.GetDocument)))
	mux.Handle("/api/documents/save", auth(http.HandlerFunc(docs.SaveDocument)))
	mux.Handle("/api/documents/summarize", auth(http.HandlerFunc(docs.Summarize)))
	mux.Handle("/api/documents/export", auth(http.HandlerFunc(docs.Export)))
	mux.Handle("/api/documents/send", auth(http.HandlerFunc(docs.Send)))

	return middleware.CORSMiddleware(mux), hub, nil
}
