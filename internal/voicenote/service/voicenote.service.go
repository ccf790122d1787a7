package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"voxnote/internal/asset"
	"voxnote/internal/capture"
	"voxnote/internal/transcription"
	"voxnote/internal/voicenote/model"
	"voxnote/internal/voicenote/repository"
	"voxnote/middleware"
	"voxnote/pkg/apperr"
	"voxnote/pkg/logger"
)

// Event types pushed to open editing rooms.
const (
	MetadataEvent   = "METADATA"
	TranscriptEvent = "TRANSCRIPT"
)

// Notifier pushes events to the editors of a voice note.
type Notifier interface {
	Publish(voiceNoteID, msgType string, payload interface{})
	RemoveRoom(voiceNoteID string)
}

type VoiceNoteService struct {
	Repo        *repository.VoiceNoteRepository
	Assets      asset.Store
	Transcriber *transcription.Job
	Recordings  *capture.Registry
	Hub         Notifier
	AudioURLTTL time.Duration

	now func() time.Time
}

func NewVoiceNoteService(repo *repository.VoiceNoteRepository, assets asset.Store, transcriber *transcription.Job, recordings *capture.Registry, hub Notifier) *VoiceNoteService {
	return &VoiceNoteService{
		Repo:        repo,
		Assets:      assets,
		Transcriber: transcriber,
		Recordings:  recordings,
		Hub:         hub,
		AudioURLTTL: time.Hour,
		now:         time.Now,
	}
}

// StartRecording opens a capture session for the caller.
func (s *VoiceNoteService) StartRecording(ctx context.Context) (string, error) {
	owner, err := principal(ctx, "voicenote.StartRecording")
	if err != nil {
		return "", err
	}
	id, err := s.Recordings.Open(owner)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "voicenote.StartRecording", err)
	}
	logger.Sugar.Infof("Started recording %s for %s", id, owner)
	return id, nil
}

func (s *VoiceNoteService) AppendChunk(ctx context.Context, sessionID string, chunk []byte) error {
	const op = "voicenote.AppendChunk"
	owner, err := principal(ctx, op)
	if err != nil {
		return err
	}
	return captureError(op, s.Recordings.Append(owner, sessionID, chunk))
}

// StopRecording closes the session and stores its blob as a new voice note.
func (s *VoiceNoteService) StopRecording(ctx context.Context, sessionID string) (*model.VoiceNote, error) {
	const op = "voicenote.StopRecording"
	owner, err := principal(ctx, op)
	if err != nil {
		return nil, err
	}
	blob, err := s.Recordings.Close(owner, sessionID)
	if err != nil {
		return nil, captureError(op, err)
	}
	return s.CreateFromRecording(ctx, blob)
}

// CreateFromRecording uploads a finished recording and records it. The note
// is only created once the asset is stored.
func (s *VoiceNoteService) CreateFromRecording(ctx context.Context, blob capture.Blob) (*model.VoiceNote, error) {
	const op = "voicenote.CreateFromRecording"
	owner, err := principal(ctx, op)
	if err != nil {
		return nil, err
	}
	if len(blob.Data) == 0 {
		return nil, apperr.New(apperr.Validation, op, "recording is empty")
	}

	now := s.now()
	key := asset.OwnerKey(owner, fmt.Sprintf("recording-%d.%s", now.UnixMilli(), asset.ExtensionFor(blob.MediaType)))
	locator, err := s.Assets.Put(ctx, key, blob.Data, blob.MediaType)
	if err != nil {
		logger.Sugar.Errorf("Failed to upload recording for %s: %v", owner, err)
		return nil, err
	}

	duration := blob.Duration().Seconds()
	return s.Repo.Create(ctx, model.CreateFields{
		Title:    "Recording " + now.Format("15:04:05"),
		AudioURL: locator,
		Duration: &duration,
	})
}

// Upload stores an existing audio file as a new voice note.
func (s *VoiceNoteService) Upload(ctx context.Context, filename, contentType string, data []byte) (*model.VoiceNote, error) {
	const op = "voicenote.Upload"
	owner, err := principal(ctx, op)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(contentType, "audio/") {
		return nil, apperr.New(apperr.Validation, op, "Please upload an audio file")
	}
	if len(data) == 0 {
		return nil, apperr.New(apperr.Validation, op, "uploaded file is empty")
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		ext = asset.ExtensionFor(contentType)
	}
	now := s.now()
	key := asset.OwnerKey(owner, fmt.Sprintf("upload-%d.%s", now.UnixMilli(), ext))
	locator, err := s.Assets.Put(ctx, key, data, contentType)
	if err != nil {
		logger.Sugar.Errorf("Failed to store upload %q for %s: %v", filename, owner, err)
		return nil, err
	}

	return s.Repo.Create(ctx, model.CreateFields{
		Title:    "Upload " + now.Format("15:04:05"),
		AudioURL: locator,
	})
}

// CreateDraft creates a note without audio to attach a new document to.
func (s *VoiceNoteService) CreateDraft(ctx context.Context, title string) (*model.VoiceNote, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DraftTitle
	}
	return s.Repo.Create(ctx, model.CreateFields{Title: title, Draft: true})
}

func (s *VoiceNoteService) List(ctx context.Context) ([]model.VoiceNote, error) {
	return s.Repo.List(ctx)
}

func (s *VoiceNoteService) Get(ctx context.Context, id string) (*model.VoiceNote, error) {
	return s.Repo.Get(ctx, id)
}

// Update applies an edit-form patch and tells open editors about it.
func (s *VoiceNoteService) Update(ctx context.Context, id string, patch model.Patch) (*model.VoiceNote, error) {
	if patch.Empty() {
		return nil, apperr.New(apperr.Validation, "voicenote.Update", "nothing to update")
	}
	note, err := s.Repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.Hub.Publish(id, MetadataEvent, map[string]interface{}{
		"title":       note.Title,
		"description": note.Description,
		"tags":        note.Tags,
		"transcript":  note.Transcript,
	})
	return note, nil
}

// Delete removes the note; its document goes with it through the foreign
// key. Stored audio is left in place.
func (s *VoiceNoteService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.Hub.RemoveRoom(id)
	return nil
}

// Transcribe runs the transcription job and pushes only the transcript field
// to open editors.
func (s *VoiceNoteService) Transcribe(ctx context.Context, id string) (string, error) {
	text, err := s.Transcriber.Run(ctx, id)
	if err != nil {
		return "", err
	}
	s.Hub.Publish(id, TranscriptEvent, model.TranscriptResponse{Transcript: text})
	return text, nil
}

// AudioURL returns a temporary playback URL for the note's audio.
func (s *VoiceNoteService) AudioURL(ctx context.Context, id string) (*model.AudioURLResponse, error) {
	const op = "voicenote.AudioURL"
	note, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.AudioURL == "" {
		return nil, apperr.New(apperr.Validation, op, "voice note has no audio")
	}
	url, err := s.Assets.SignedRead(ctx, note.AudioURL, s.AudioURLTTL)
	if err != nil {
		return nil, err
	}
	return &model.AudioURLResponse{URL: url, ExpiresAt: s.now().Add(s.AudioURLTTL)}, nil
}

func principal(ctx context.Context, op string) (string, error) {
	owner, ok := middleware.UserIDFrom(ctx)
	if !ok {
		return "", apperr.New(apperr.Unauthorized, op, "no authenticated user")
	}
	return owner, nil
}

func captureError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, capture.ErrSessionNotFound):
		return apperr.Wrap(apperr.NotFound, op, err)
	case errors.Is(err, capture.ErrTooLarge):
		return apperr.New(apperr.Validation, op, "Recording is too large")
	default:
		return apperr.Wrap(apperr.Validation, op, err)
	}
}
