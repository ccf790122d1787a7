package transcription

import (
	"bytes"
	"context"
	"fmt"

	"voxnote/internal/asset"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEngine transcribes audio with the Whisper endpoint.
type OpenAIEngine struct {
	Client *openai.Client
	Model  string
}

func NewOpenAIEngine(client *openai.Client, model string) *OpenAIEngine {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIEngine{Client: client, Model: model}
}

func (e *OpenAIEngine) Transcribe(ctx context.Context, audio []byte, mediaType string) (string, error) {
	// The API infers the container format from the file name.
	resp, err := e.Client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.Model,
		Reader:   bytes.NewReader(audio),
		FilePath: "audio." + asset.ExtensionFor(mediaType),
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return resp.Text, nil
}
