package summarization

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"voxnote/internal/document/model"
	"voxnote/pkg/apperr"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noteID = "5b0c3f4e-8f1a-4c55-9d1e-2f6a7b8c9d0e"

type fakeDocs struct {
	calls   int
	content model.Content
	title   string
	err     error
}

func (f *fakeDocs) Upsert(ctx context.Context, voiceNoteID string, content model.Content, title string) (*model.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.content = content
	f.title = title
	return &model.Document{ID: "doc-1", VoiceNoteID: voiceNoteID, Title: title, Content: content}, nil
}

type fakeEngine struct {
	summary string
	err     error
}

func (f fakeEngine) Summarize(ctx context.Context, transcript string) (string, error) {
	return f.summary, f.err
}

func TestRunReplacesDocumentContent(t *testing.T) {
	docs := &fakeDocs{}
	doc, err := NewJob(docs, fakeEngine{summary: "## Standup\n\n- shipped"}).
		Run(context.Background(), Request{VoiceNoteID: noteID, Title: "Standup", Transcript: "we shipped"})
	require.NoError(t, err)
	assert.Equal(t, 1, docs.calls)
	assert.Equal(t, model.Markdown("## Standup\n\n- shipped"), doc.Content)
	assert.Equal(t, "Standup", docs.title)
}

func TestRunFailures(t *testing.T) {
	t.Run("remote error writes nothing", func(t *testing.T) {
		docs := &fakeDocs{}
		_, err := NewJob(docs, fakeEngine{err: errors.New("rate limited")}).Run(context.Background(), Request{VoiceNoteID: noteID, Transcript: "x"})
		assert.Equal(t, apperr.SummarizationFailed, apperr.KindOf(err))
		assert.Zero(t, docs.calls)
	})
	t.Run("empty summary writes nothing", func(t *testing.T) {
		docs := &fakeDocs{}
		_, err := NewJob(docs, fakeEngine{summary: "\n"}).Run(context.Background(), Request{VoiceNoteID: noteID, Transcript: "x"})
		assert.Equal(t, apperr.SummarizationFailed, apperr.KindOf(err))
		assert.Zero(t, docs.calls)
	})
	t.Run("store error", func(t *testing.T) {
		docs := &fakeDocs{err: apperr.New(apperr.NotFound, "document.Upsert", "voice note not found")}
		_, err := NewJob(docs, fakeEngine{summary: "s"}).Run(context.Background(), Request{VoiceNoteID: noteID, Transcript: "x"})
		assert.Equal(t, apperr.SummarizationFailed, apperr.KindOf(err))
		assert.ErrorIs(t, err, apperr.NotFound)
	})
}

func TestOpenAIEngine(t *testing.T) {
	var req openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "  ## Summary\n- a  "}}},
		})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	summary, err := NewOpenAIEngine(openai.NewClientWithConfig(cfg), "").Summarize(context.Background(), "the transcript")
	require.NoError(t, err)
	assert.Equal(t, "## Summary\n- a", summary)
	assert.Equal(t, openai.GPT4oMini, req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "the transcript", req.Messages[1].Content)
}

func TestOpenAIEngineNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	_, err := NewOpenAIEngine(openai.NewClientWithConfig(cfg), "gpt-4o-mini").Summarize(context.Background(), "x")
	assert.Error(t, err)
}
