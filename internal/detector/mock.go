package detector

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/darshan/internal/face"
)

// MockProvider is a test implementation of the Provider interface.
// It allows tests to control the detection results.
type MockProvider struct {
	mu     sync.Mutex
	frame  face.Frame
	err    error
	delay  time.Duration
	calls  int
	closed bool
}

// NewMockProvider creates a new MockProvider instance.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// SetFrame sets the result that will be returned by Detect.
func (m *MockProvider) SetFrame(f face.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = f
}

// SetError sets the error that will be returned by Detect.
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes every Detect call take at least d.
func (m *MockProvider) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns how many times Detect ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockProvider) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Detect returns the pre-configured frame or error. The frame size is
// filled in from the input when the scripted result leaves it zero.
func (m *MockProvider) Detect(frame *gocv.Mat) (face.Frame, error) {
	m.mu.Lock()
	m.calls++
	delay, result, err := m.delay, m.frame, m.err
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return face.Frame{}, err
	}

	result.Boxes = append([]face.BoundingBox(nil), result.Boxes...)
	if result.Width == 0 && frame != nil {
		result.Width, result.Height = frame.Cols(), frame.Rows()
	}
	if result.CapturedAt.IsZero() {
		result.CapturedAt = time.Now()
	}
	return result, nil
}

// Close marks the mock closed.
func (m *MockProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CenteredFace returns a single face in the middle of the frame at a
// comfortable distance.
func CenteredFace() face.BoundingBox {
	return face.BoundingBox{CenterX: 0.5, CenterY: 0.5, Width: 0.3, Height: 0.4, Confidence: 0.9}
}
