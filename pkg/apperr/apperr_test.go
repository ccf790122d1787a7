package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindThroughWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("handler: %w", Wrap(StorageFailure, "asset.Get", cause))

	assert.True(t, errors.Is(err, StorageFailure))
	assert.False(t, errors.Is(err, NotFound))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, StorageFailure, KindOf(err))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(err))
}

func TestOutermostKindWins(t *testing.T) {
	inner := Wrap(StorageFailure, "asset.Get", errors.New("gone"))
	err := Wrap(TranscriptionFailed, "transcription.Run", inner)

	assert.Equal(t, TranscriptionFailed, KindOf(err))
	assert.True(t, errors.Is(err, StorageFailure), "cause kind stays reachable")
	assert.Equal(t, "transcription.Run: transcription_failed: asset.Get: storage_failure: gone", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(NotFound, "op", nil))
}

func TestUnkindedErrorsAreInternal(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, Internal, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.Equal(t, "Something went wrong", UserMessage(err))
}

func TestValidationMessageIsShownToUser(t *testing.T) {
	err := New(Validation, "voicenote.Create", "audio locator is required")
	assert.Equal(t, "audio locator is required", UserMessage(err))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}
