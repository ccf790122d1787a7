package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContentKind tags which editor produced a document body.
type ContentKind string

const (
	KindBlocks   ContentKind = "blocks"
	KindMarkdown ContentKind = "markdown"
)

// DefaultTitle is used when the owning voice note has no title.
const DefaultTitle = "New Document"

// Content is the document body: a serialized block array or a markdown string.
type Content struct {
	Kind    ContentKind `json:"kind"`
	Payload string      `json:"payload"`
}

func Markdown(text string) Content {
	return Content{Kind: KindMarkdown, Payload: text}
}

func Blocks(raw json.RawMessage) Content {
	return Content{Kind: KindBlocks, Payload: string(raw)}
}

// Validate checks the kind and, for blocks, that the payload is a JSON array.
func (c Content) Validate() error {
	switch c.Kind {
	case KindMarkdown:
		return nil
	case KindBlocks:
		var blocks []json.RawMessage
		if err := json.Unmarshal([]byte(c.Payload), &blocks); err != nil {
			return fmt.Errorf("blocks payload must be a JSON array: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown content kind %q", c.Kind)
	}
}

// Equal reports whether two bodies are identical.
func (c Content) Equal(o Content) bool {
	return c.Kind == o.Kind && c.Payload == o.Payload
}

type Document struct {
	ID          string    `json:"id"`
	VoiceNoteID string    `json:"voice_note_id"`
	Title       string    `json:"title"`
	Content     Content   `json:"content"`
	MarkdownURL string    `json:"markdown_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type GetDocResponse struct {
	Document *Document `json:"document"`
}

type SaveDocRequest struct {
	VoiceNoteID string  `json:"voice_note_id"`
	Content     Content `json:"content"`
}

type SummarizeResponse struct {
	Summary  string    `json:"summary"`
	Document *Document `json:"document"`
}

type ExportResponse struct {
	MarkdownURL string `json:"markdown_url"`
}

type SendRequest struct {
	VoiceNoteID string `json:"voice_note_id"`
	To          string `json:"to"`
}

type SendResponse struct {
	ID string `json:"id"`
}
