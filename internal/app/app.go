// Package app wires capture, detection, overlay, gestures and recording into one session.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/darshan/internal/capture"
	"github.com/ayusman/darshan/internal/clips"
	"github.com/ayusman/darshan/internal/detector"
	"github.com/ayusman/darshan/internal/face"
	"github.com/ayusman/darshan/internal/gesture"
	"github.com/ayusman/darshan/internal/media"
	"github.com/ayusman/darshan/internal/overlay"
	"github.com/ayusman/darshan/internal/recorder"
)

// Config holds configuration options for the application.
type Config struct {
	// Camera is an opened camera, or nil when none could be acquired.
	Camera capture.Camera
	// Provider detects faces; nil disables detection.
	Provider detector.Provider
	// Clips persists finished recordings.
	Clips *clips.Service

	FeedFPS   int
	Runner    detector.RunnerConfig
	Recorder  recorder.Config
	Media     []media.Option
	QueueSize int
	Logger    *slog.Logger
}

// App is one capture session: the shared feed, the detection runner, the
// recording controller and the UI flags clients toggle.
type App struct {
	log      *slog.Logger
	camera   capture.Camera
	provider detector.Provider
	feed     *capture.Feed
	runner   *detector.Runner
	recorder *recorder.Controller
	clips    *clips.Service
	queue    *gesture.Queue
	zoom     *gesture.Zoom

	mu          sync.RWMutex
	calibrating bool
	lastFrame   face.Frame
	plan        overlay.Plan
	hasPlan     bool
	subs        map[int]func(overlay.Plan)
	nextSub     int

	closeOnce sync.Once
}

// New creates an App. A missing camera leaves detection, preview and
// recording inert; everything else keeps working.
func New(cfg Config) *App {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	a := &App{
		log:      cfg.Logger.With("component", "app"),
		camera:   cfg.Camera,
		provider: cfg.Provider,
		clips:    cfg.Clips,
		queue:    gesture.NewQueue(cfg.QueueSize),
		zoom:     gesture.NewZoom(),
		subs:     make(map[int]func(overlay.Plan)),
	}

	var rec recorder.Media
	if cfg.Camera != nil {
		fps := cfg.FeedFPS
		if fps <= 0 {
			fps = cfg.Camera.FPS()
		}
		a.feed = capture.NewFeed(cfg.Camera, fps, cfg.Logger)

		opts := append([]media.Option{media.WithLogger(cfg.Logger)}, cfg.Media...)
		rec = media.NewFrameRecorder(a.feed, opts...)

		if cfg.Provider != nil {
			rc := cfg.Runner
			if rc.Logger == nil {
				rc.Logger = cfg.Logger
			}
			a.runner = detector.NewRunner(a.feed, cfg.Provider, rc, a.Publish)
		}
	} else {
		a.log.Warn("no camera stream; detection and recording are disabled")
	}

	var sink recorder.Sink
	if cfg.Clips != nil {
		sink = cfg.Clips
	}

	rcfg := cfg.Recorder
	if rcfg.Logger == nil {
		rcfg.Logger = cfg.Logger
	}
	a.recorder = recorder.New(rec, sink, rcfg)

	return a
}

// Run drives the session until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.feed != nil {
		g.Go(func() error { return a.feed.Run(ctx) })
	}
	if a.runner != nil {
		g.Go(func() error { return a.runner.Run(ctx) })
	}
	g.Go(func() error { return a.recorder.Run(ctx, a.queue.C()) })

	a.log.Info("session started", "camera", a.camera != nil, "detection", a.runner != nil)
	err := g.Wait()
	a.log.Info("session stopped")

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Close releases the camera and the face detector. Safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.camera != nil {
			if err := a.camera.Close(); err != nil {
				a.log.Error("close camera", "err", err)
			}
		}
		if a.provider != nil {
			if err := a.provider.Close(); err != nil {
				a.log.Error("close detector", "err", err)
			}
		}
	})
}

// HasCamera reports whether a camera stream is available.
func (a *App) HasCamera() bool {
	return a.feed != nil
}

// Feed returns the shared frame feed, or nil without a camera.
func (a *App) Feed() *capture.Feed {
	return a.feed
}

// Recorder returns the recording controller.
func (a *App) Recorder() *recorder.Controller {
	return a.recorder
}

// Clips returns the clip service.
func (a *App) Clips() *clips.Service {
	return a.clips
}

// Zoom returns the preview zoom.
func (a *App) Zoom() *gesture.Zoom {
	return a.zoom
}

// Queue returns the intent queue consumed by the recorder.
func (a *App) Queue() *gesture.Queue {
	return a.queue
}

// Mapper returns a gesture mapper for one client.
func (a *App) Mapper(userAgent, source string) *gesture.Mapper {
	return gesture.NewMapper(userAgent, source, a.zoom, a.queue)
}

// StartRecording queues a start intent. It reports whether the intent was accepted.
func (a *App) StartRecording(name, source string) bool {
	return a.queue.Push(gesture.Intent{Kind: gesture.IntentStart, Name: name, Source: source})
}

// StopRecording queues a stop intent.
func (a *App) StopRecording(source string) bool {
	return a.queue.Push(gesture.Intent{Kind: gesture.IntentStop, Source: source})
}

// SetCalibrating turns calibration hints on or off. The current plan is
// redrawn so subscribers see the change without waiting for a detection.
func (a *App) SetCalibrating(on bool) {
	a.mu.Lock()
	if a.calibrating == on {
		a.mu.Unlock()
		return
	}
	a.calibrating = on
	if !a.hasPlan {
		a.mu.Unlock()
		a.log.Info("calibration toggled", "on", on)
		return
	}
	plan, subs := a.renderLocked()
	a.mu.Unlock()

	a.log.Info("calibration toggled", "on", on)
	for _, fn := range subs {
		fn(plan)
	}
}

// Calibrating reports whether calibration hints are on.
func (a *App) Calibrating() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.calibrating
}

// RecordingStatus returns the recording controller snapshot.
func (a *App) RecordingStatus() recorder.Status {
	return a.recorder.Status()
}
