package model

import (
	"strings"
	"time"
)

// VoiceNote is a user-owned audio recording with metadata and an optional
// transcript. AudioURL is empty only for drafts.
type VoiceNote struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	AudioURL    string    `json:"audio_url,omitempty"`
	Duration    *float64  `json:"duration,omitempty"`
	Transcript  *string   `json:"transcript,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasTranscript reports whether a non-empty transcript is attached.
func (v *VoiceNote) HasTranscript() bool {
	return v.Transcript != nil && strings.TrimSpace(*v.Transcript) != ""
}

// CreateFields are the inputs of a new voice note. Draft notes back the
// new-document flow and carry no audio.
type CreateFields struct {
	Title       string
	Description string
	Tags        []string
	AudioURL    string
	Duration    *float64
	Draft       bool
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Transcript  *string   `json:"transcript,omitempty"`
	Duration    *float64  `json:"duration,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Tags == nil && p.Transcript == nil && p.Duration == nil
}

// UpdateRequest is the body of the metadata edit form. Tags arrive as a
// comma-separated string.
type UpdateRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Tags        *string  `json:"tags"`
	Transcript  *string  `json:"transcript"`
	Duration    *float64 `json:"duration"`
}

// Patch converts the form body into a repository patch.
func (r UpdateRequest) Patch() Patch {
	p := Patch{
		Title:       r.Title,
		Description: r.Description,
		Transcript:  r.Transcript,
		Duration:    r.Duration,
	}
	if r.Tags != nil {
		tags := SplitTags(*r.Tags)
		p.Tags = &tags
	}
	return p
}

type DraftRequest struct {
	Title string `json:"title"`
}

type TranscriptResponse struct {
	Transcript string `json:"transcript"`
}

type AudioURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RecordingStartResponse struct {
	SessionID string `json:"session_id"`
}

// SplitTags parses "a, b ,,c" into a tag set.
func SplitTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}

// NormalizeTags trims tags, drops empties and removes duplicates while
// keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// DraftTitle names a draft created without a title.
const DraftTitle = "New Document"
