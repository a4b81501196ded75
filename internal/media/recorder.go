// Package media turns camera frames into recordable chunks.
package media

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/darshan/internal/capture"
)

// DefaultTimeslice is how often a chunk is emitted.
const DefaultTimeslice = 100 * time.Millisecond

// DefaultQuality is the JPEG quality used for recorded frames.
const DefaultQuality = 85

var (
	// ErrAlreadyRecording is returned by Start while a capture is running.
	ErrAlreadyRecording = errors.New("recorder already running")
	// ErrNoSource is returned by Start when there is no camera stream.
	ErrNoSource = errors.New("no camera stream")
)

// Recorder produces chunks of encoded media until stopped.
type Recorder interface {
	// Start begins capture. onChunk is called from the capture goroutine.
	Start(onChunk func([]byte)) error
	// Stop ends capture. Every chunk has been delivered when Stop returns.
	Stop() error
}

// FrameRecorder grabs one frame per timeslice and emits it as a JPEG.
// Concatenated, the chunks form a Motion-JPEG stream.
type FrameRecorder struct {
	src       capture.Source
	timeslice time.Duration
	quality   int
	log       *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// Option configures a FrameRecorder.
type Option func(*FrameRecorder)

// WithTimeslice sets the chunk interval.
func WithTimeslice(d time.Duration) Option {
	return func(r *FrameRecorder) {
		if d > 0 {
			r.timeslice = d
		}
	}
}

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option {
	return func(r *FrameRecorder) {
		if q > 0 && q <= 100 {
			r.quality = q
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *FrameRecorder) {
		if l != nil {
			r.log = l
		}
	}
}

// NewFrameRecorder creates a recorder over src. A nil src is allowed; Start
// then fails with ErrNoSource.
func NewFrameRecorder(src capture.Source, opts ...Option) *FrameRecorder {
	r := &FrameRecorder{
		src:       src,
		timeslice: DefaultTimeslice,
		quality:   DefaultQuality,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "media")
	return r
}

// Start launches the capture goroutine.
func (r *FrameRecorder) Start(onChunk func([]byte)) error {
	if r.src == nil {
		return ErrNoSource
	}
	if onChunk == nil {
		return errors.New("nil chunk handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		return ErrAlreadyRecording
	}

	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop(r.stop, r.done, onChunk)

	r.log.Info("capture started", "timeslice", r.timeslice)
	return nil
}

// Stop signals the goroutine and waits for the final chunk. Stopping an idle
// recorder is a no-op.
func (r *FrameRecorder) Stop() error {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done

	r.log.Info("capture stopped")
	return nil
}

// Recording reports whether the capture goroutine is running.
func (r *FrameRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

func (r *FrameRecorder) loop(stop <-chan struct{}, done chan<- struct{}, onChunk func([]byte)) {
	defer close(done)

	ticker := time.NewTicker(r.timeslice)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-stop:
			// Flush the partial timeslice.
			if chunk, err := r.grab(); err == nil {
				onChunk(chunk)
			}
			return
		case <-ticker.C:
			chunk, err := r.grab()
			if err != nil {
				failures++
				if failures%50 == 1 {
					r.log.Warn("grab frame", "err", err, "failures", failures)
				}
				continue
			}
			onChunk(chunk)
		}
	}
}

func (r *FrameRecorder) grab() ([]byte, error) {
	frame, err := r.src.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()
	return EncodeJPEG(frame, r.quality)
}

// EncodeJPEG encodes frame as a standalone JPEG image.
func EncodeJPEG(frame *gocv.Mat, quality int) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, capture.ErrEmptyFrame
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer is released on Close; hand out a Go-owned copy.
	return append([]byte(nil), buf.GetBytes()...), nil
}
