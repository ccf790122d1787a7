// Package summarization condenses a transcript and stores the result as the
// voice note's document.
package summarization

import (
	"context"
	"strings"

	"voxnote/internal/document/model"
	"voxnote/pkg/apperr"
	"voxnote/pkg/logger"
)

// Engine is the remote summarization procedure.
type Engine interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// DocumentStore is the slice of the document repository the job needs.
type DocumentStore interface {
	Upsert(ctx context.Context, voiceNoteID string, content model.Content, titleFallback string) (*model.Document, error)
}

type Job struct {
	Docs   DocumentStore
	Engine Engine
}

func NewJob(docs DocumentStore, engine Engine) *Job {
	return &Job{Docs: docs, Engine: engine}
}

// Request names the transcript to summarize and the document to write. Title
// is only used when the document does not exist yet.
type Request struct {
	VoiceNoteID string
	Title       string
	Transcript  string
}

// Run summarizes req.Transcript and replaces the document content with the
// summary. Callers check that a transcript exists; the job does not.
func (j *Job) Run(ctx context.Context, req Request) (*model.Document, error) {
	const op = "summarization.Run"

	summary, err := j.Engine.Summarize(ctx, req.Transcript)
	if err != nil {
		return nil, fail(op, req.VoiceNoteID, err)
	}
	if strings.TrimSpace(summary) == "" {
		return nil, fail(op, req.VoiceNoteID, apperr.New(apperr.Validation, op, "engine returned an empty summary"))
	}

	doc, err := j.Docs.Upsert(ctx, req.VoiceNoteID, model.Markdown(summary), req.Title)
	if err != nil {
		return nil, fail(op, req.VoiceNoteID, err)
	}
	logger.Sugar.Infof("Summarized voice note %s into document %s", req.VoiceNoteID, doc.ID)
	return doc, nil
}

func fail(op, voiceNoteID string, err error) error {
	logger.Sugar.Errorf("Summarization of voice note %s failed: %v", voiceNoteID, err)
	return apperr.Wrap(apperr.SummarizationFailed, op, err)
}
