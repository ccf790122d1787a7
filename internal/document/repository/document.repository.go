package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"voxnote/internal/document/model"
	"voxnote/middleware"
	"voxnote/pkg/apperr"
	"voxnote/pkg/logger"

	"github.com/google/uuid"
)

const columns = `d.id, d.voice_note_id, d.title, d.content_kind, d.content, d.markdown_url, d.created_at, d.updated_at`

// DocumentRepository stores the one document each voice note may have.
// Documents carry no owner column; every statement joins voice_notes to scope
// by the principal in the context.
type DocumentRepository struct {
	DB *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

// GetByVoiceNote returns the note's document, or nil with no error when none
// has been saved yet.
func (r *DocumentRepository) GetByVoiceNote(ctx context.Context, voiceNoteID string) (*model.Document, error) {
	const op = "document.GetByVoiceNote"
	owner, err := principal(ctx, op)
	if err != nil {
		return nil, err
	}
	if !validID(voiceNoteID) {
		return nil, nil
	}

	row := r.DB.QueryRowContext(ctx, `
		SELECT `+columns+`
		FROM documents d JOIN voice_notes v ON v.id = d.voice_note_id
		WHERE d.voice_note_id = $1 AND v.user_id = $2`, voiceNoteID, owner)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to load document for voice note %s: %v", voiceNoteID, err)
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}
	return doc, nil
}

// List returns the caller's documents, most recently edited first.
func (r *DocumentRepository) List(ctx context.Context) ([]model.Document, error) {
	const op = "document.List"
	owner, err := principal(ctx, op)
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+columns+`
		FROM documents d JOIN voice_notes v ON v.id = d.voice_note_id
		WHERE v.user_id = $1
		ORDER BY d.updated_at DESC`, owner)
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents for %s: %v", owner, err)
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, op, err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}
	return docs, nil
}

// Upsert replaces the document's content, creating the document on first
// save. Insert-or-update and the ownership check happen in one statement, so
// concurrent first saves for the same note converge on a single row through
// the unique voice_note_id constraint. The title is only used on insert.
func (r *DocumentRepository) Upsert(ctx context.Context, voiceNoteID string, content model.Content, titleFallback string) (*model.Document, error) {
	const op = "document.Upsert"
	owner, err := principal(ctx, op)
	if err != nil {
		return nil, err
	}
	if err := content.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.Validation, op, err)
	}
	if !validID(voiceNoteID) {
		return nil, apperr.New(apperr.NotFound, op, "voice note not found")
	}

	row := r.DB.QueryRowContext(ctx, `
		WITH d AS (
			INSERT INTO documents (id, voice_note_id, title, content_kind, content, created_at, updated_at)
			SELECT $1::uuid, v.id, COALESCE(NULLIF($3, ''), NULLIF(v.title, ''), $4), $5, $6, NOW(), NOW()
			FROM voice_notes v
			WHERE v.id = $2 AND v.user_id = $7
			ON CONFLICT (voice_note_id) DO UPDATE
				SET content_kind = EXCLUDED.content_kind, content = EXCLUDED.content, updated_at = NOW()
			RETURNING *
		)
		SELECT `+columns+` FROM d`,
		uuid.NewString(), voiceNoteID, strings.TrimSpace(titleFallback), model.DefaultTitle,
		string(content.Kind), content.Payload, owner,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, op, "voice note not found")
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to upsert document for voice note %s: %v", voiceNoteID, err)
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}
	return doc, nil
}

// AttachMarkdownExport records where the exported markdown file lives.
func (r *DocumentRepository) AttachMarkdownExport(ctx context.Context, voiceNoteID, locator string) error {
	const op = "document.AttachMarkdownExport"
	owner, err := principal(ctx, op)
	if err != nil {
		return err
	}
	if !validID(voiceNoteID) {
		return apperr.New(apperr.NotFound, op, "document not found")
	}

	result, err := r.DB.ExecContext(ctx, `
		UPDATE documents d SET markdown_url = $1, updated_at = NOW()
		FROM voice_notes v
		WHERE v.id = d.voice_note_id AND d.voice_note_id = $2 AND v.user_id = $3`,
		locator, voiceNoteID, owner)
	if err != nil {
		logger.Sugar.Errorf("Failed to attach markdown export for voice note %s: %v", voiceNoteID, err)
		return apperr.Wrap(apperr.Internal, op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.Internal, op, err)
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, op, "document not found")
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var (
		doc         model.Document
		kind        string
		markdownURL sql.NullString
	)
	if err := s.Scan(&doc.ID, &doc.VoiceNoteID, &doc.Title, &kind, &doc.Content.Payload, &markdownURL, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Content.Kind = model.ContentKind(kind)
	doc.MarkdownURL = markdownURL.String
	return &doc, nil
}

func principal(ctx context.Context, op string) (string, error) {
	owner, ok := middleware.UserIDFrom(ctx)
	if !ok {
		return "", apperr.New(apperr.Unauthorized, op, "no authenticated user")
	}
	return owner, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
