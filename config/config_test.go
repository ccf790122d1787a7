package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("AUTOSAVE_DEBOUNCE", "")
	t.Setenv("ASSET_SIGNING_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.AutosaveDebounce)
	assert.Equal(t, "secret", cfg.AssetSigningKey, "signing key falls back to the JWT secret")
	assert.Equal(t, "whisper-1", cfg.TranscriptionModel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("AUTOSAVE_DEBOUNCE", "5s")
	t.Setenv("ASSET_BASE_URL", "https://cdn.example.com/")
	t.Setenv("user", "app")
	t.Setenv("password", "pw")
	t.Setenv("host", "db")
	t.Setenv("port", "6543")
	t.Setenv("dbname", "notes")
	t.Setenv("sslmode", "disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.AutosaveDebounce)
	assert.Equal(t, "https://cdn.example.com", cfg.AssetBaseURL)
	assert.Equal(t, "postgres://app:pw@db:6543/notes?sslmode=disable", cfg.DSN())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("AUTOSAVE_DEBOUNCE", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("AUTOSAVE_DEBOUNCE", "-1s")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}
