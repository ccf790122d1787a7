package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"voxnote/internal/asset"
	"voxnote/internal/capture"
	"voxnote/internal/voicenote/model"
	"voxnote/internal/voicenote/repository"
	"voxnote/internal/voicenote/service"
	"voxnote/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner  = "user-1"
	noteID = "5b0c3f4e-8f1a-4c55-9d1e-2f6a7b8c9d0e"
)

var noteColumns = []string{"id", "user_id", "title", "description", "tags", "audio_url", "duration", "transcript", "created_at"}

type nopHub struct{}

func (nopHub) Publish(string, string, interface{}) {}
func (nopHub) RemoveRoom(string)                   {}

func setup(t *testing.T) (*VoiceNoteHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := asset.NewDiskStore(t.TempDir(), "http://localhost:8080", "signing-key")
	require.NoError(t, err)
	svc := service.NewVoiceNoteService(repository.NewVoiceNoteRepository(db), store, nil, capture.NewRegistry(time.Minute, 1<<20), nopHub{})
	return NewVoiceNoteHandler(svc, 1<<20), mock
}

func authed(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), owner))
}

func uploadRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	part.Write(data)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/voice-notes/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return authed(req)
}

func TestUpload(t *testing.T) {
	h, mock := setup(t)
	mock.ExpectQuery("INSERT INTO voice_notes").
		WillReturnRows(sqlmock.NewRows(noteColumns).AddRow(noteID, owner, "Upload 10:00:00", nil, "{}", "http://localhost:8080/assets/voice_notes/user-1/upload-1.mp3", nil, nil, time.Now()))

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "memo.mp3", "audio/mpeg", []byte("ID3")))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var note model.VoiceNote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &note))
	assert.Equal(t, noteID, note.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadRejectsNonAudio(t *testing.T) {
	h, mock := setup(t)

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "notes.txt", "text/plain", []byte("hi")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please upload an audio file")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadTooLarge(t *testing.T) {
	h, _ := setup(t)
	h.MaxUploadBytes = 16

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "memo.mp3", "audio/mpeg", bytes.Repeat([]byte("a"), 1024)))
	assert.GreaterOrEqual(t, rec.Code, 400)
}

func TestRecordingEndpoints(t *testing.T) {
	h, mock := setup(t)

	rec := httptest.NewRecorder()
	h.StartRecording(rec, authed(httptest.NewRequest(http.MethodPost, "/api/recordings/start", nil)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var started model.RecordingStartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.NotEmpty(t, started.SessionID)

	rec = httptest.NewRecorder()
	h.AppendChunk(rec, authed(httptest.NewRequest(http.MethodPost, "/api/recordings/chunk?session="+started.SessionID, bytes.NewReader([]byte("webm-bytes")))))
	require.Equal(t, http.StatusNoContent, rec.Code)

	mock.ExpectQuery("INSERT INTO voice_notes").
		WillReturnRows(sqlmock.NewRows(noteColumns).AddRow(noteID, owner, "Recording 10:00:00", nil, "{}", "http://localhost:8080/assets/voice_notes/user-1/recording-1.webm", 0.0, nil, time.Now()))
	rec = httptest.NewRecorder()
	h.StopRecording(rec, authed(httptest.NewRequest(http.MethodPost, "/api/recordings/stop?session="+started.SessionID, nil)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The session is gone once stopped.
	rec = httptest.NewRecorder()
	h.StopRecording(rec, authed(httptest.NewRequest(http.MethodPost, "/api/recordings/stop?session="+started.SessionID, nil)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStatusMapping(t *testing.T) {
	h, mock := setup(t)
	mock.ExpectQuery("SELECT (.+) FROM voice_notes").WithArgs(noteID, owner).WillReturnError(sql.ErrNoRows)

	rec := httptest.NewRecorder()
	h.Get(rec, authed(httptest.NewRequest(http.MethodGet, "/api/voice-notes/get?id="+noteID, nil)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, authed(httptest.NewRequest(http.MethodGet, "/api/voice-notes/get", nil)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/voice-notes/get?id="+noteID, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, authed(httptest.NewRequest(http.MethodPost, "/api/voice-notes/get?id="+noteID, nil)))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUpdateSplitsTags(t *testing.T) {
	h, mock := setup(t)
	mock.ExpectQuery("UPDATE voice_notes SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), noteID, owner).
		WillReturnRows(sqlmock.NewRows(noteColumns).AddRow(noteID, owner, "Weekly", nil, "{work,ideas}", "u", nil, nil, time.Now()))

	body := bytes.NewBufferString(`{"title":"Weekly","tags":"work, ideas,,"}`)
	rec := httptest.NewRecorder()
	h.Update(rec, authed(httptest.NewRequest(http.MethodPut, "/api/voice-notes/update?id="+noteID, body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var note model.VoiceNote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &note))
	assert.Equal(t, []string{"work", "ideas"}, note.Tags)
}

func TestListEmptyIsArray(t *testing.T) {
	h, mock := setup(t)
	mock.ExpectQuery("SELECT").WithArgs(owner).WillReturnRows(sqlmock.NewRows(noteColumns))

	rec := httptest.NewRecorder()
	h.List(rec, authed(httptest.NewRequest(http.MethodGet, "/api/voice-notes", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

