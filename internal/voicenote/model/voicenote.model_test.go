package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"work", "ideas", "todo"}, SplitTags(" work, ideas,,todo , work"))
	assert.Equal(t, []string{}, SplitTags(""))
}

func TestUpdateRequestPatch(t *testing.T) {
	title := "Standup"
	tags := "a, b"
	p := UpdateRequest{Title: &title, Tags: &tags}.Patch()

	assert.Equal(t, "Standup", *p.Title)
	assert.Equal(t, []string{"a", "b"}, *p.Tags)
	assert.Nil(t, p.Description)
	assert.False(t, p.Empty())
	assert.True(t, UpdateRequest{}.Patch().Empty())
}

func TestHasTranscript(t *testing.T) {
	blank := "  "
	text := "hello"
	assert.False(t, (&VoiceNote{}).HasTranscript())
	assert.False(t, (&VoiceNote{Transcript: &blank}).HasTranscript())
	assert.True(t, (&VoiceNote{Transcript: &text}).HasTranscript())
}
