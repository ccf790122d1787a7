package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"voxnote/internal/voicenote/model"
	"voxnote/middleware"
	"voxnote/pkg/apperr"
	"voxnote/pkg/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const columns = `id, user_id, title, description, tags, audio_url, duration, transcript, created_at`

// VoiceNoteRepository is the owner-scoped store of voice notes. Every query
// filters on the principal found in the context, so a foreign id behaves
// exactly like a missing one.
type VoiceNoteRepository struct {
	DB *sql.DB
}

func NewVoiceNoteRepository(db *sql.DB) *VoiceNoteRepository {
	return &VoiceNoteRepository{DB: db}
}

func (r *VoiceNoteRepository) Create(ctx context.Context, f model.CreateFields) (*model.VoiceNote, error) {
	const op = "voicenote.Create"
	owner, err := principal(ctx, op)
	if err != nil {
		return nil, err
	}
	if !f.Draft && strings.TrimSpace(f.AudioURL) == "" {
		return nil, apperr.New(apperr.Validation, op, "audio locator is required")
	}
	if f.Duration != nil && *f.Duration < 0 {
		return nil, apperr.New(apperr.Validation, op, "duration must not be negative")
	}

	var audioURL sql.NullString
	if !f.Draft {
		audioURL = sql.NullString{String: f.AudioURL, Valid: true}
	}

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO voice_notes (id, user_id, title, description, tags, audio_url, duration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING `+columns,
		uuid.NewString(), owner, f.Title, nullString(f.Description), pq.Array(model.NormalizeTags(f.Tags)), audioURL, nullFloat(f.Duration),
	)
	note, err := scanVoiceNote(row)
	if err != nil {
		logger.Sugar.Errorf("Failed to create voice note for %s: %v", owner, err)
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}
	return note, nil
}

func (r *VoiceNoteRepository) Get(ctx context.Context, id string) (*model.VoiceNote, error) {
	const op = "voicenote.Get"
	owner, err := principal(ctx, op)
	if err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, apperr.New(apperr.NotFound, op, "voice note not found")
	}

	row := r.DB.QueryRowContext(ctx, `SELECT `+columns+` FROM voice_notes WHERE id = $1 AND user_id = $2`, id, owner)
	note, err := scanVoiceNote(row)
	if err != nil {
		return nil, notFoundOr(op, id, err)
	}
	return note, nil
}

// List returns the caller's notes, newest first.
func (r *VoiceNoteRepository) List(ctx context.Context) ([]model.VoiceNote, error) {
	const op = "voicenote.List"
	owner, err := principal(ctx, op)
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT `+columns+` FROM voice_notes WHERE user_id = $1 ORDER BY created_at DESC`, owner)
	if err != nil {
		logger.Sugar.Errorf("Failed to list voice notes for %s: %v", owner, err)
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}
	defer rows.Close()

	notes := []model.VoiceNote{}
	for rows.Next() {
		note, err := scanVoiceNote(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, op, err)
		}
		notes = append(notes, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}
	return notes, nil
}

// Update applies the non-nil fields of patch in one statement.
func (r *VoiceNoteRepository) Update(ctx context.Context, id string, patch model.Patch) (*model.VoiceNote, error) {
	const op = "voicenote.Update"
	owner, err := principal(ctx, op)
	if err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, apperr.New(apperr.NotFound, op, "voice note not found")
	}
	if patch.Duration != nil && *patch.Duration < 0 {
		return nil, apperr.New(apperr.Validation, op, "duration must not be negative")
	}

	var tags interface{}
	if patch.Tags != nil {
		tags = pq.Array(model.NormalizeTags(*patch.Tags))
	}

	row := r.DB.QueryRowContext(ctx, `
		UPDATE voice_notes SET
			title = COALESCE($1, title),
			description = COALESCE($2, description),
			tags = COALESCE($3, tags),
			transcript = COALESCE($4, transcript),
			duration = COALESCE($5, duration)
		WHERE id = $6 AND user_id = $7
		RETURNING `+columns,
		nullStringPtr(patch.Title), nullStringPtr(patch.Description), tags, nullStringPtr(patch.Transcript), nullFloat(patch.Duration),
		id, owner,
	)
	note, err := scanVoiceNote(row)
	if err != nil {
		return nil, notFoundOr(op, id, err)
	}
	return note, nil
}

// SetTranscript replaces the transcript as a whole.
func (r *VoiceNoteRepository) SetTranscript(ctx context.Context, id, transcript string) error {
	const op = "voicenote.SetTranscript"
	owner, err := principal(ctx, op)
	if err != nil {
		return err
	}
	if !validID(id) {
		return apperr.New(apperr.NotFound, op, "voice note not found")
	}

	result, err := r.DB.ExecContext(ctx, `UPDATE voice_notes SET transcript = $1 WHERE id = $2 AND user_id = $3`, transcript, id, owner)
	if err != nil {
		logger.Sugar.Errorf("Failed to save transcript for voice note %s: %v", id, err)
		return apperr.Wrap(apperr.Internal, op, err)
	}
	return requireRow(op, result)
}

func (r *VoiceNoteRepository) Delete(ctx context.Context, id string) error {
	const op = "voicenote.Delete"
	owner, err := principal(ctx, op)
	if err != nil {
		return err
	}
	if !validID(id) {
		return apperr.New(apperr.NotFound, op, "voice note not found")
	}

	result, err := r.DB.ExecContext(ctx, `DELETE FROM voice_notes WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete voice note %s: %v", id, err)
		return apperr.Wrap(apperr.Internal, op, err)
	}
	return requireRow(op, result)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanVoiceNote(s scanner) (*model.VoiceNote, error) {
	var (
		note        model.VoiceNote
		description sql.NullString
		tags        pq.StringArray
		audioURL    sql.NullString
		duration    sql.NullFloat64
		transcript  sql.NullString
	)
	if err := s.Scan(&note.ID, &note.UserID, &note.Title, &description, &tags, &audioURL, &duration, &transcript, &note.CreatedAt); err != nil {
		return nil, err
	}
	note.Description = description.String
	note.Tags = []string(tags)
	if note.Tags == nil {
		note.Tags = []string{}
	}
	note.AudioURL = audioURL.String
	if duration.Valid {
		d := duration.Float64
		note.Duration = &d
	}
	if transcript.Valid {
		t := transcript.String
		note.Transcript = &t
	}
	return &note, nil
}

func principal(ctx context.Context, op string) (string, error) {
	owner, ok := middleware.UserIDFrom(ctx)
	if !ok {
		return "", apperr.New(apperr.Unauthorized, op, "no authenticated user")
	}
	return owner, nil
}

func notFoundOr(op, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.NotFound, op, "voice note not found")
	}
	logger.Sugar.Errorf("%s failed for voice note %s: %v", op, id, err)
	return apperr.Wrap(apperr.Internal, op, err)
}

func requireRow(op string, result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.Internal, op, err)
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, op, "voice note not found")
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
