// Package autosave debounces document edits into saves.
package autosave

import (
	"context"
	"sync"
	"time"

	"voxnote/internal/document/model"
	"voxnote/pkg/logger"
)

type State int

const (
	Idle State = iota
	PendingSave
	Saving
)

func (s State) String() string {
	switch s {
	case PendingSave:
		return "pending"
	case Saving:
		return "saving"
	default:
		return "idle"
	}
}

// SaveFunc persists one snapshot of the document.
type SaveFunc func(ctx context.Context, content model.Content) error

// Result is reported after every save attempt.
type Result struct {
	Content model.Content
	Err     error
	At      time.Time
}

// Controller turns a stream of edits into debounced saves. The latest edit
// always wins, at most one save runs at a time, and a failed save is reported
// once and not retried.
type Controller struct {
	ctx      context.Context
	save     SaveFunc
	delay    time.Duration
	onResult func(Result)

	mu      sync.Mutex
	pending *model.Content
	due     bool
	timer   *time.Timer
	gen     uint64
	saving  bool
	closed  bool
}

// New returns an idle controller. ctx is used for every save and must carry
// the principal the save runs as. onResult may be nil.
func New(ctx context.Context, delay time.Duration, save SaveFunc, onResult func(Result)) *Controller {
	if delay <= 0 {
		delay = time.Second
	}
	return &Controller{ctx: ctx, save: save, delay: delay, onResult: onResult}
}

// Change records new content and restarts the debounce window.
func (c *Controller) Change(content model.Content) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pending = &content
	c.due = false
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.delay, func() { c.fire(gen) })
}

// SaveNow records content and saves it without waiting for the debounce.
func (c *Controller) SaveNow(content model.Content) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending = &content
	c.mu.Unlock()
	c.Flush()
}

// Flush cancels the debounce timer and saves pending content immediately. It
// returns without waiting for the save to finish.
func (c *Controller) Flush() {
	c.mu.Lock()
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.startLocked()
	c.mu.Unlock()
}

// Close cancels the timer and drops unsaved content. A save already in flight
// runs to completion.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.pending = nil
	c.due = false
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.saving:
		return Saving
	case c.pending != nil:
		return PendingSave
	default:
		return Idle
	}
}

// fire runs when a debounce window elapses. A timer that fired while a newer
// edit re-armed the window belongs to an old generation and does nothing.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.timer = nil
	c.startLocked()
}

// startLocked marks pending content as due and starts the save loop unless
// one is already running; a running loop picks the content up when its
// current save returns.
func (c *Controller) startLocked() {
	if c.closed || c.pending == nil {
		return
	}
	c.due = true
	if c.saving {
		return
	}
	c.saving = true
	go c.loop()
}

func (c *Controller) loop() {
	for {
		c.mu.Lock()
		if c.closed || !c.due || c.pending == nil {
			c.saving = false
			c.mu.Unlock()
			return
		}
		content := *c.pending
		c.pending = nil
		c.due = false
		c.mu.Unlock()

		err := c.save(c.ctx, content)
		if err != nil {
			logger.Sugar.Errorf("Autosave failed: %v", err)
		} else {
			// An edit back to what was just stored needs no second save.
			c.mu.Lock()
			if c.pending != nil && c.pending.Equal(content) {
				c.pending = nil
				c.due = false
			}
			c.mu.Unlock()
		}
		if c.onResult != nil {
			c.onResult(Result{Content: content, Err: err, At: time.Now()})
		}
	}
}
