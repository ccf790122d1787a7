package asset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voxnote/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir(), "http://localhost:8080/", "signing-key")
	require.NoError(t, err)
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	locator, err := store.Put(ctx, OwnerKey("user-1", "recording-1.webm"), []byte("RIFF"), "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/assets/voice_notes/user-1/recording-1.webm", locator)

	obj, err := store.Get(ctx, locator)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), obj.Data)
	assert.Equal(t, "audio/webm", obj.ContentType)
	assert.Equal(t, "user-1/recording-1.webm", obj.Key)

	entries, err := os.ReadDir(filepath.Join(store.root, Bucket, "user-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestPutOverwritesWholeObject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := OwnerKey("user-1", "documents/doc.md")

	_, err := store.Put(ctx, key, []byte("a much longer first version"), "text/markdown")
	require.NoError(t, err)
	locator, err := store.Put(ctx, key, []byte("short"), "text/markdown")
	require.NoError(t, err)

	obj, err := store.Get(ctx, locator)
	require.NoError(t, err)
	assert.Equal(t, "short", string(obj.Data))
}

func TestGetFailures(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "not a locator")
	assert.ErrorIs(t, err, apperr.Validation)

	_, err = store.Get(ctx, "http://localhost:8080/assets/voice_notes/user-1/missing.webm")
	assert.ErrorIs(t, err, apperr.NotFound)

	_, err = store.Get(ctx, "http://localhost:8080/assets/voice_notes/../../etc/passwd")
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestPutRejectsUnscopedKeys(t *testing.T) {
	store := newTestStore(t)
	for _, key := range []string{"", "flat.webm", "/abs/file.webm", "user/../other/file.webm"} {
		_, err := store.Put(context.Background(), key, []byte("x"), "audio/webm")
		assert.ErrorIs(t, err, apperr.Validation, key)
	}
}

func TestParseLocatorUnescapesKey(t *testing.T) {
	key, err := ParseLocator("https://abc.supabase.co/storage/v1/object/public/voice_notes/user-1/my%20note.webm")
	require.NoError(t, err)
	assert.Equal(t, "user-1/my note.webm", key)
}

func TestSignedReadIsServedUntilExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	locator, err := store.Put(ctx, OwnerKey("user-1", "a.webm"), []byte("audio"), "audio/webm")
	require.NoError(t, err)

	signed, err := store.SignedRead(ctx, locator, time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	store.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio", rec.Body.String())
	assert.Equal(t, "audio/webm", rec.Header().Get("Content-Type"))

	now = now.Add(2 * time.Minute)
	rec = httptest.NewRecorder()
	store.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignedTokenIsBoundToItsKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mine, err := store.Put(ctx, OwnerKey("user-1", "a.webm"), []byte("mine"), "audio/webm")
	require.NoError(t, err)
	_, err = store.Put(ctx, OwnerKey("user-2", "b.webm"), []byte("theirs"), "audio/webm")
	require.NoError(t, err)

	signed, err := store.SignedRead(ctx, mine, time.Minute)
	require.NoError(t, err)
	u, _ := url.Parse(signed)

	req := httptest.NewRequest(http.MethodGet, "/assets/voice_notes/user-2/b.webm?"+u.RawQuery, nil)
	rec := httptest.NewRecorder()
	store.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignedReadOfMissingObject(t *testing.T) {
	store := newTestStore(t)
	_, err := store.SignedRead(context.Background(), "http://localhost:8080/assets/voice_notes/user-1/none.webm", time.Minute)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, "mp3", ExtensionFor("audio/mpeg"))
	assert.Equal(t, "webm", ExtensionFor("audio/webm;codecs=opus"))
	assert.Equal(t, "webm", ExtensionFor("application/unknown"))
}
