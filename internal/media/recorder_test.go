package media

import (
	"bytes"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/darshan/internal/capture"
)

var jpegSOI = []byte{0xFF, 0xD8}

type chunkLog struct {
	mu     sync.Mutex
	chunks [][]byte
}

func (c *chunkLog) add(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, b)
}

func (c *chunkLog) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chunks)
}

func newCamera(t *testing.T) *capture.MockCamera {
	t.Helper()
	frame := capture.SolidFrame(160, 120, 50, image.Rect(40, 30, 120, 90))
	t.Cleanup(func() { frame.Close() })

	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	t.Cleanup(func() { cam.Close() })
	return cam
}

func TestFrameRecorder_EmitsJPEGChunks(t *testing.T) {
	r := NewFrameRecorder(newCamera(t), WithTimeslice(10*time.Millisecond))

	var got chunkLog
	if err := r.Start(got.add); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !r.Recording() {
		t.Error("Recording() = false after Start")
	}

	time.Sleep(80 * time.Millisecond)

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if r.Recording() {
		t.Error("Recording() = true after Stop")
	}

	n := got.len()
	if n < 2 {
		t.Fatalf("got %d chunks, want several", n)
	}
	for i, c := range got.chunks {
		if !bytes.HasPrefix(c, jpegSOI) {
			t.Errorf("chunk %d is not a JPEG", i)
		}
	}

	// Nothing arrives after Stop returns
	time.Sleep(30 * time.Millisecond)
	if got.len() != n {
		t.Errorf("chunks delivered after Stop: %d -> %d", n, got.len())
	}
}

func TestFrameRecorder_StopFlushes(t *testing.T) {
	r := NewFrameRecorder(newCamera(t), WithTimeslice(time.Hour))

	var got chunkLog
	if err := r.Start(got.add); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	r.Stop()

	if got.len() != 1 {
		t.Errorf("got %d chunks, want the single flushed chunk", got.len())
	}
}

func TestFrameRecorder_StartTwice(t *testing.T) {
	r := NewFrameRecorder(newCamera(t))
	defer r.Stop()

	if err := r.Start(func([]byte) {}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Start(func([]byte) {}); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRecording", err)
	}
}

func TestFrameRecorder_NoSource(t *testing.T) {
	r := NewFrameRecorder(nil)
	if err := r.Start(func([]byte) {}); !errors.Is(err, ErrNoSource) {
		t.Errorf("Start() error = %v, want ErrNoSource", err)
	}
	if err := r.Stop(); err != nil {
		t.Errorf("Stop() on idle recorder error = %v", err)
	}
}

func TestOptions(t *testing.T) {
	r := NewFrameRecorder(nil, WithTimeslice(0), WithQuality(500))
	if r.timeslice != DefaultTimeslice {
		t.Errorf("timeslice = %v, want default", r.timeslice)
	}
	if r.quality != DefaultQuality {
		t.Errorf("quality = %d, want default", r.quality)
	}

	r = NewFrameRecorder(nil, WithTimeslice(time.Second), WithQuality(40))
	if r.timeslice != time.Second || r.quality != 40 {
		t.Errorf("options not applied: %v %d", r.timeslice, r.quality)
	}
}

func TestEncodeJPEG(t *testing.T) {
	if _, err := EncodeJPEG(nil, 80); !errors.Is(err, capture.ErrEmptyFrame) {
		t.Errorf("EncodeJPEG(nil) error = %v", err)
	}

	frame := capture.SolidFrame(64, 48, 100, image.Rectangle{})
	defer frame.Close()

	data, err := EncodeJPEG(&frame, 80)
	if err != nil {
		t.Fatalf("EncodeJPEG() error = %v", err)
	}
	if !bytes.HasPrefix(data, jpegSOI) {
		t.Error("output is not a JPEG")
	}
}
