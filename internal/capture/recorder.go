// Package capture turns a stream of recorded audio chunks into one blob.
package capture

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// MediaType of every blob produced by a Recorder.
const MediaType = "audio/webm"

var (
	ErrNotRecording     = errors.New("no recording in progress")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrTooLarge         = errors.New("recording exceeds the size limit")
)

// Blob is a finished in-memory recording.
type Blob struct {
	Data      []byte
	MediaType string
	StartedAt time.Time
	StoppedAt time.Time
}

// Duration is the wall-clock length of the recording session.
func (b Blob) Duration() time.Duration {
	return b.StoppedAt.Sub(b.StartedAt)
}

// Recorder buffers the chunks of one recording session.
type Recorder struct {
	mu        sync.Mutex
	chunks    [][]byte
	size      int
	recording bool
	startedAt time.Time
	lastWrite time.Time
	limit     int
	now       func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Start begins a new session, discarding any chunks of a previous one.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return ErrAlreadyRecording
	}
	r.chunks = nil
	r.size = 0
	r.recording = true
	r.startedAt = r.now()
	r.lastWrite = r.startedAt
	return nil
}

// Write appends a chunk. Empty chunks are ignored. A chunk that would take
// the buffer past the recorder's limit is rejected whole.
func (r *Recorder) Write(chunk []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return 0, ErrNotRecording
	}
	if r.limit > 0 && r.size+len(chunk) > r.limit {
		return 0, ErrTooLarge
	}
	r.lastWrite = r.now()
	if len(chunk) == 0 {
		return 0, nil
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)
	r.chunks = append(r.chunks, c)
	r.size += len(c)
	return len(chunk), nil
}

// Stop ends the session and returns everything written as a single blob.
func (r *Recorder) Stop() (Blob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return Blob{}, ErrNotRecording
	}
	r.recording = false

	data := bytes.Join(r.chunks, nil)
	r.chunks = nil
	r.size = 0
	return Blob{
		Data:      data,
		MediaType: MediaType,
		StartedAt: r.startedAt,
		StoppedAt: r.now(),
	}, nil
}

func (r *Recorder) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastWrite
}
