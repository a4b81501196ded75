package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned by Feed.ReadFrame before the first frame arrives.
var ErrNoFrame = errors.New("no frame captured yet")

// Feed reads a camera on one goroutine and keeps only the latest frame.
// Any number of consumers (detection, preview, recording) read clones of
// that frame at their own pace; a slow consumer never holds up the camera.
type Feed struct {
	cam Source
	fps int
	log *slog.Logger

	mu     sync.RWMutex
	latest *gocv.Mat
	seq    uint64
	width  int
	height int

	errors atomic.Uint64
}

// NewFeed wraps cam, polling it fps times per second.
func NewFeed(cam Source, fps int, log *slog.Logger) *Feed {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if log == nil {
		log = slog.Default()
	}
	return &Feed{cam: cam, fps: fps, log: log.With("component", "feed")}
}

// Run polls the camera until ctx is done, then releases the held frame.
func (f *Feed) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(f.fps))
	defer ticker.Stop()
	defer f.release()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			frame, err := f.cam.ReadFrame()
			if err != nil {
				if f.errors.Add(1)%100 == 1 {
					f.log.Warn("read frame", "err", err)
				}
				continue
			}
			f.publish(frame)
		}
	}
}

func (f *Feed) publish(frame *gocv.Mat) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.latest != nil {
		f.latest.Close()
	}
	f.latest = frame
	f.seq++
	f.width = frame.Cols()
	f.height = frame.Rows()
}

func (f *Feed) release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.latest != nil {
		f.latest.Close()
		f.latest = nil
	}
}

// ReadFrame returns a clone of the latest frame.
func (f *Feed) ReadFrame() (*gocv.Mat, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.latest == nil {
		return nil, ErrNoFrame
	}
	clone := f.latest.Clone()
	return &clone, nil
}

// Seq returns the number of frames published so far.
func (f *Feed) Seq() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.seq
}

// Size returns the dimensions of the latest frame, or zeros before the first.
func (f *Feed) Size() (width, height int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.width, f.height
}

// Errors returns the number of failed camera reads.
func (f *Feed) Errors() uint64 {
	return f.errors.Load()
}
