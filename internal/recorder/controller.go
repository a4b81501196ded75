// Package recorder implements the countdown and recording state machine.
//
// States move Idle -> CountingDown(n) -> Recording -> Idle. Intents and ticks
// are handled one at a time; Run serializes them on a single goroutine. Media
// chunks arrive from the capture goroutine and are buffered separately so that
// stopping capture never waits on the state lock.
package recorder

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/darshan/internal/clips"
	"github.com/ayusman/darshan/internal/gesture"
)

// Defaults for the countdown.
const (
	DefaultCountdown = 3
	DefaultTick      = time.Second
	finalizeTimeout  = 10 * time.Second
)

var errNoSink = errors.New("no clip storage configured")

// Media captures encoded chunks until stopped. Stop must not return until
// the last chunk has been delivered.
type Media interface {
	Start(onChunk func([]byte)) error
	Stop() error
}

// Sink persists one finished recording.
type Sink interface {
	Save(ctx context.Context, data []byte, name string) (clips.Clip, error)
}

// Config holds controller settings.
type Config struct {
	Countdown int
	Tick      time.Duration
	Logger    *slog.Logger
}

// Controller owns the recording session state.
type Controller struct {
	media     Media
	sink      Sink
	log       *slog.Logger
	countdown int
	tick      time.Duration

	mu        sync.Mutex
	state     State
	remaining int
	name      string
	startedAt time.Time
	lastClip  *clips.Clip
	lastErr   string
	observers []func(Status)

	bufMu     sync.Mutex
	capturing bool
	chunks    [][]byte

	reset chan struct{}
}

// New creates a Controller in the Idle state. media may be nil when no camera
// is available; starts then fall back to Idle.
func New(media Media, sink Sink, cfg Config) *Controller {
	if cfg.Countdown <= 0 {
		cfg.Countdown = DefaultCountdown
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		media:     media,
		sink:      sink,
		log:       cfg.Logger.With("component", "recorder"),
		countdown: cfg.Countdown,
		tick:      cfg.Tick,
		state:     StateIdle,
		reset:     make(chan struct{}, 1),
	}
}

// Subscribe registers fn to receive a Status after every transition.
func (c *Controller) Subscribe(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Status returns the current snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) statusLocked() Status {
	c.bufMu.Lock()
	n := len(c.chunks)
	c.bufMu.Unlock()

	s := Status{
		State:     c.state,
		Name:      c.name,
		Chunks:    n,
		StartedAt: c.startedAt,
		LastClip:  c.lastClip,
		Error:     c.lastErr,
	}
	if c.state == StateCountingDown {
		s.Countdown = c.remaining
	}
	return s
}

// Handle applies one intent.
func (c *Controller) Handle(ctx context.Context, in gesture.Intent) {
	switch in.Kind {
	case gesture.IntentStart:
		c.Start(in.Name)
	case gesture.IntentStop:
		c.Stop(ctx)
	default:
		c.log.Warn("unknown intent", "kind", in.Kind)
	}
}

// Start begins the countdown. It is ignored unless the controller is Idle.
func (c *Controller) Start(name string) bool {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		c.log.Debug("start ignored", "state", c.State())
		return false
	}
	c.state = StateCountingDown
	c.remaining = c.countdown
	c.name = name
	c.lastErr = ""
	c.mu.Unlock()

	select {
	case c.reset <- struct{}{}:
	default:
	}

	c.log.Info("countdown started", "from", c.countdown, "name", name)
	c.notify()
	return true
}

// Tick advances the countdown by one step. When it reaches zero capture
// begins. Ticks in any other state do nothing.
func (c *Controller) Tick() {
	c.mu.Lock()
	if c.state != StateCountingDown {
		c.mu.Unlock()
		return
	}
	c.remaining--
	if c.remaining > 0 {
		c.mu.Unlock()
		c.notify()
		return
	}
	c.beginLocked()
	c.mu.Unlock()
	c.notify()
}

// beginLocked moves CountingDown(0) to Recording. Without working media the
// session falls back to Idle.
func (c *Controller) beginLocked() {
	c.bufMu.Lock()
	c.chunks = nil
	c.capturing = true
	c.bufMu.Unlock()

	if c.media == nil {
		c.abortLocked("no media stream")
		return
	}
	if err := c.media.Start(c.Chunk); err != nil {
		c.abortLocked(err.Error())
		return
	}

	c.state = StateRecording
	c.remaining = 0
	c.startedAt = time.Now()
	c.log.Info("recording started", "name", c.name)
}

func (c *Controller) abortLocked(reason string) {
	c.bufMu.Lock()
	c.capturing = false
	c.chunks = nil
	c.bufMu.Unlock()

	c.state = StateIdle
	c.remaining = 0
	c.name = ""
	c.lastErr = reason
	c.log.Error("recording could not start", "err", reason)
}

// Chunk buffers one encoded media chunk. Chunks outside a recording and
// empty chunks are dropped.
func (c *Controller) Chunk(data []byte) {
	if len(data) == 0 {
		return
	}
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	if !c.capturing {
		return
	}
	c.chunks = append(c.chunks, data)
}

// Stop ends the session. While recording, capture is finalized and the
// buffered chunks are persisted as one clip. During the countdown the
// session is cancelled without a clip. In Idle it does nothing.
func (c *Controller) Stop(ctx context.Context) (*clips.Clip, bool) {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.mu.Unlock()
		return nil, false
	case StateCountingDown:
		c.state = StateIdle
		c.remaining = 0
		c.name = ""
		c.mu.Unlock()
		c.log.Info("countdown cancelled")
		c.notify()
		return nil, false
	}

	clip, err := c.finalizeLocked(ctx)
	c.mu.Unlock()
	c.notify()
	if err != nil {
		return nil, false
	}
	return clip, true
}

func (c *Controller) finalizeLocked(ctx context.Context) (*clips.Clip, error) {
	if err := c.media.Stop(); err != nil {
		c.log.Warn("stop media", "err", err)
	}

	c.bufMu.Lock()
	data := bytes.Join(c.chunks, nil)
	n := len(c.chunks)
	c.chunks = nil
	c.capturing = false
	c.bufMu.Unlock()

	name := c.name
	c.state = StateIdle
	c.name = ""
	c.startedAt = time.Time{}

	if c.sink == nil {
		c.lastErr = errNoSink.Error()
		c.log.Error("persist clip", "err", errNoSink, "chunks", n)
		return nil, errNoSink
	}

	clip, err := c.sink.Save(ctx, data, name)
	if err != nil {
		c.lastErr = err.Error()
		c.log.Error("persist clip", "err", err, "chunks", n)
		return nil, err
	}

	c.lastClip = &clip
	c.lastErr = ""
	c.log.Info("recording stopped", "id", clip.ID, "chunks", n, "bytes", len(data))
	return &clip, nil
}

// Run consumes intents and drives the countdown until ctx is done. A session
// still recording at that point is finalized so capture is always released.
func (c *Controller) Run(ctx context.Context, intents <-chan gesture.Intent) error {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	defer c.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-intents:
			if !ok {
				intents = nil
				continue
			}
			c.Handle(ctx, in)
			c.restartTicks(ticker)
		case <-c.reset:
			ticker.Reset(c.tick)
		case <-ticker.C:
			// A tick racing a fresh countdown belongs to the previous period.
			if c.restartTicks(ticker) {
				continue
			}
			c.Tick()
		}
	}
}

// restartTicks resets ticker when a countdown has just started, so every
// step of a fresh countdown is a full tick. It reports whether it did.
func (c *Controller) restartTicks(ticker *time.Ticker) bool {
	select {
	case <-c.reset:
		ticker.Reset(c.tick)
		return true
	default:
		return false
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateRecording:
		ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		defer cancel()
		c.finalizeLocked(ctx)
	case StateCountingDown:
		c.state = StateIdle
		c.remaining = 0
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	s := c.statusLocked()
	observers := append([]func(Status){}, c.observers...)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}
