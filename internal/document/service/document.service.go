package service

import (
	"context"

	"voxnote/internal/asset"
	"voxnote/internal/delivery"
	"voxnote/internal/document/model"
	"voxnote/internal/document/repository"
	"voxnote/internal/summarization"
	vnrepo "voxnote/internal/voicenote/repository"
	"voxnote/middleware"
	"voxnote/pkg/apperr"
	"voxnote/pkg/logger"
)

// DocumentEvent is pushed to open editors when the server replaces a document.
const DocumentEvent = "DOCUMENT"

type Notifier interface {
	Publish(voiceNoteID, msgType string, payload interface{})
}

type DocumentService struct {
	Repo       *repository.DocumentRepository
	Notes      *vnrepo.VoiceNoteRepository
	Assets     asset.Store
	Summarizer *summarization.Job
	Mailer     delivery.Sender
	Hub        Notifier
}

func NewDocumentService(repo *repository.DocumentRepository, notes *vnrepo.VoiceNoteRepository, assets asset.Store, summarizer *summarization.Job, mailer delivery.Sender, hub Notifier) *DocumentService {
	return &DocumentService{Repo: repo, Notes: notes, Assets: assets, Summarizer: summarizer, Mailer: mailer, Hub: hub}
}

// Get returns the note's document, or nil when none has been saved. Unknown
// and foreign notes are NotFound.
func (s *DocumentService) Get(ctx context.Context, voiceNoteID string) (*model.Document, error) {
	if _, err := s.Notes.Get(ctx, voiceNoteID); err != nil {
		return nil, err
	}
	return s.Repo.GetByVoiceNote(ctx, voiceNoteID)
}

// Save writes editor content, creating the document titled after its note on
// first save.
func (s *DocumentService) Save(ctx context.Context, voiceNoteID string, content model.Content) (*model.Document, error) {
	return s.Repo.Upsert(ctx, voiceNoteID, content, "")
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	return s.Repo.List(ctx)
}

// Summarize replaces the note's document with a summary of its transcript.
func (s *DocumentService) Summarize(ctx context.Context, voiceNoteID string) (*model.SummarizeResponse, error) {
	const op = "document.Summarize"
	note, err := s.Notes.Get(ctx, voiceNoteID)
	if err != nil {
		return nil, err
	}
	if !note.HasTranscript() {
		return nil, apperr.New(apperr.Validation, op, "Transcribe the voice note before summarizing")
	}

	doc, err := s.Summarizer.Run(ctx, summarization.Request{
		VoiceNoteID: voiceNoteID,
		Title:       note.Title,
		Transcript:  *note.Transcript,
	})
	if err != nil {
		return nil, err
	}
	s.Hub.Publish(voiceNoteID, DocumentEvent, doc)
	return &model.SummarizeResponse{Summary: doc.Content.Payload, Document: doc}, nil
}

// Export writes the document as markdown to the asset store and records the
// locator on the document.
func (s *DocumentService) Export(ctx context.Context, voiceNoteID string) (string, error) {
	const op = "document.Export"
	owner, ok := middleware.UserIDFrom(ctx)
	if !ok {
		return "", apperr.New(apperr.Unauthorized, op, "no authenticated user")
	}
	doc, err := s.requireDocument(ctx, op, voiceNoteID)
	if err != nil {
		return "", err
	}

	key := asset.OwnerKey(owner, "documents/"+doc.ID+".md")
	locator, err := s.Assets.Put(ctx, key, []byte(doc.Content.MarkdownText()), "text/markdown; charset=utf-8")
	if err != nil {
		return "", err
	}
	if err := s.Repo.AttachMarkdownExport(ctx, voiceNoteID, locator); err != nil {
		return "", err
	}
	logger.Sugar.Infof("Exported document %s to %s", doc.ID, locator)
	return locator, nil
}

// Send emails the document as markdown.
func (s *DocumentService) Send(ctx context.Context, voiceNoteID, to string) (string, error) {
	doc, err := s.requireDocument(ctx, "document.Send", voiceNoteID)
	if err != nil {
		return "", err
	}
	return s.Mailer.Send(ctx, delivery.Message{To: to, Title: doc.Title, Markdown: doc.Content.MarkdownText()})
}

func (s *DocumentService) requireDocument(ctx context.Context, op, voiceNoteID string) (*model.Document, error) {
	doc, err := s.Get(ctx, voiceNoteID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.New(apperr.NotFound, op, "document not found")
	}
	return doc, nil
}
