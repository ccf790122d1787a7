// Package transcription turns a voice note's stored audio into text and saves
// it on the note.
package transcription

import (
	"context"
	"strings"

	"voxnote/internal/asset"
	"voxnote/internal/voicenote/model"
	"voxnote/pkg/apperr"
	"voxnote/pkg/logger"
)

// Engine is the remote speech-to-text procedure.
type Engine interface {
	Transcribe(ctx context.Context, audio []byte, mediaType string) (string, error)
}

// NoteStore is the slice of the voice note repository the job needs.
type NoteStore interface {
	Get(ctx context.Context, id string) (*model.VoiceNote, error)
	SetTranscript(ctx context.Context, id, transcript string) error
}

// AssetReader resolves a locator to bytes.
type AssetReader interface {
	Get(ctx context.Context, locator string) (asset.Object, error)
}

// Job runs one transcription per call. It does not retry; running it again
// overwrites the previous transcript.
type Job struct {
	Notes  NoteStore
	Assets AssetReader
	Engine Engine
}

func NewJob(notes NoteStore, assets AssetReader, engine Engine) *Job {
	return &Job{Notes: notes, Assets: assets, Engine: engine}
}

// Run transcribes the note's audio and persists the text. Lookup failures of
// the note itself (Unauthorized, NotFound) are returned as they are; every
// later failure is a TranscriptionFailed wrapping the cause, and the stored
// transcript is left untouched.
func (j *Job) Run(ctx context.Context, voiceNoteID string) (string, error) {
	const op = "transcription.Run"

	note, err := j.Notes.Get(ctx, voiceNoteID)
	if err != nil {
		return "", err
	}
	if note.AudioURL == "" {
		return "", fail(op, voiceNoteID, apperr.New(apperr.Validation, op, "voice note has no audio"))
	}

	logger.Sugar.Infof("Downloading audio for voice note %s", voiceNoteID)
	obj, err := j.Assets.Get(ctx, note.AudioURL)
	if err != nil {
		return "", fail(op, voiceNoteID, err)
	}

	text, err := j.Engine.Transcribe(ctx, obj.Data, obj.ContentType)
	if err != nil {
		return "", fail(op, voiceNoteID, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fail(op, voiceNoteID, apperr.New(apperr.Validation, op, "engine returned an empty transcript"))
	}

	if err := j.Notes.SetTranscript(ctx, voiceNoteID, text); err != nil {
		return "", fail(op, voiceNoteID, err)
	}
	logger.Sugar.Infof("Saved transcript for voice note %s (%d chars)", voiceNoteID, len(text))
	return text, nil
}

func fail(op, voiceNoteID string, err error) error {
	logger.Sugar.Errorf("Transcription of voice note %s failed: %v", voiceNoteID, err)
	return apperr.Wrap(apperr.TranscriptionFailed, op, err)
}
