package detector

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/darshan/internal/capture"
	"github.com/ayusman/darshan/internal/face"
)

// Runner cadence defaults.
const (
	// IdleFPS is the detection rate while the scene is still.
	IdleFPS = 5
	// ActiveFPS is the detection rate while the scene is changing.
	ActiveFPS = 15
	// IdleTimeout is how long the scene must stay still before dropping back to IdleFPS.
	IdleTimeout = 2 * time.Second
)

// RunnerConfig tunes a Runner.
type RunnerConfig struct {
	IdleFPS           int
	ActiveFPS         int
	IdleTimeout       time.Duration
	ActivityThreshold float64
	MinConfidence     float64
	MaxFaces          int
	Logger            *slog.Logger
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.IdleFPS <= 0 {
		c.IdleFPS = IdleFPS
	}
	if c.ActiveFPS <= 0 {
		c.ActiveFPS = ActiveFPS
	}
	if c.ActiveFPS < c.IdleFPS {
		c.ActiveFPS = c.IdleFPS
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = IdleTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Runner reads frames from a source, detects faces and hands each result to
// a callback. A tick that arrives while the previous cycle is still running
// is dropped; a failed cycle produces no callback.
type Runner struct {
	src      capture.Source
	provider Provider
	onFrame  func(face.Frame)
	cfg      RunnerConfig
	log      *slog.Logger
	meter    *capture.ActivityMeter

	busy     atomic.Bool
	active   atomic.Bool
	skipped  atomic.Uint64
	failures atomic.Uint64

	mu           sync.Mutex
	lastActivity time.Time
}

// NewRunner creates a Runner. onFrame is called from the cycle goroutine.
func NewRunner(src capture.Source, provider Provider, cfg RunnerConfig, onFrame func(face.Frame)) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		src:      src,
		provider: provider,
		onFrame:  onFrame,
		cfg:      cfg,
		log:      cfg.Logger.With("component", "detector"),
		meter:    capture.NewActivityMeter(cfg.ActivityThreshold),
	}
}

// Run drives detection until ctx is done. It waits for the cycle in flight
// before returning.
func (r *Runner) Run(ctx context.Context) error {
	defer r.meter.Close()

	interval := r.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !r.busy.CompareAndSwap(false, true) {
				r.skipped.Add(1)
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer r.busy.Store(false)
				r.cycle()
			}()

			if next := r.interval(); next != interval {
				interval = next
				ticker.Reset(interval)
				r.log.Debug("cadence changed", "active", r.active.Load(), "interval", interval)
			}
		}
	}
}

// Active reports whether the runner is at its active cadence.
func (r *Runner) Active() bool {
	return r.active.Load()
}

// Skipped returns the number of ticks dropped because a cycle was in flight.
func (r *Runner) Skipped() uint64 {
	return r.skipped.Load()
}

// Failures returns the number of cycles that ended without a result.
func (r *Runner) Failures() uint64 {
	return r.failures.Load()
}

func (r *Runner) interval() time.Duration {
	fps := r.cfg.IdleFPS
	if r.active.Load() {
		fps = r.cfg.ActiveFPS
	}
	return time.Second / time.Duration(fps)
}

// cycle runs one read-detect-deliver pass. It reports whether a result was delivered.
func (r *Runner) cycle() bool {
	frame, err := r.src.ReadFrame()
	if err != nil {
		r.failures.Add(1)
		r.log.Debug("read frame", "err", err)
		return false
	}
	defer frame.Close()

	now := time.Now()
	moving, _ := r.meter.Measure(frame)

	r.mu.Lock()
	if moving {
		r.lastActivity = now
	}
	active := !r.lastActivity.IsZero() && now.Sub(r.lastActivity) <= r.cfg.IdleTimeout
	r.mu.Unlock()
	r.active.Store(active)

	result, err := r.provider.Detect(frame)
	if err != nil {
		if r.failures.Add(1)%50 == 1 {
			r.log.Warn("detection failed", "err", err)
		}
		return false
	}

	result = Filter(result, r.cfg.MinConfidence, r.cfg.MaxFaces)
	if result.Width == 0 || result.Height == 0 {
		result.Width, result.Height = frame.Cols(), frame.Rows()
	}
	if result.CapturedAt.IsZero() {
		result.CapturedAt = now
	}

	if r.onFrame != nil {
		r.onFrame(result)
	}
	return true
}
