package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voxnote/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		JWTSecret:            "secret",
		AssetDir:             t.TempDir(),
		AssetBaseURL:         "http://localhost:8080",
		AssetSigningKey:      "secret",
		AutosaveDebounce:     time.Second,
		RecordingIdleTimeout: time.Minute,
		MaxUploadBytes:       1 << 20,
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler, hub, err := Setup(testConfig(t), db)
	require.NoError(t, err)
	require.NotNil(t, hub)

	for _, path := range []string{
		"/api/voice-notes",
		"/api/voice-notes/get?id=x",
		"/api/recordings/start",
		"/api/documents",
		"/api/documents/summarize",
		"/ws",
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAssetsUseSignatures(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler, _, err := Setup(testConfig(t), db)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/voice_notes/user-1/a.webm", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/voice-notes", nil)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
