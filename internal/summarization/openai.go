package summarization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const systemPrompt = `You summarize voice note transcripts into concise markdown notes.
Start with a short "## " heading, then list the key points, decisions and action items as bullets.
Only use information present in the transcript.`

// OpenAIEngine summarizes with a chat completion model.
type OpenAIEngine struct {
	Client *openai.Client
	Model  string
}

func NewOpenAIEngine(client *openai.Client, model string) *OpenAIEngine {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIEngine{Client: client, Model: model}
}

func (e *OpenAIEngine) Summarize(ctx context.Context, transcript string) (string, error) {
	resp, err := e.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("openai summarization: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai summarization: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
