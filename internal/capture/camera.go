// Package capture acquires camera frames with GoCV (OpenCV) and shares them between consumers.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEmptyFrame is returned when the device hands back no pixels.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Source hands out frames. The caller owns, and must close, every returned Mat.
type Source interface {
	ReadFrame() (*gocv.Mat, error)
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Source
	Open() error
	Close() error
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Config selects the capture device and its requested mode.
type Config struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	return c
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	cfg     Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
}

// NewCamera creates a Camera for cfg. The device is not touched until Open.
func NewCamera(cfg Config) Camera {
	cfg = cfg.withDefaults()
	return &cameraImpl{
		cfg: cfg,
		fps: cfg.FPS,
	}
}

// Acquire opens the configured device. A device that cannot be opened
// (missing, busy, permission denied) is logged and reported as a nil Camera:
// the stream is simply absent and dependent features stay idle.
func Acquire(cfg Config, log *slog.Logger) Camera {
	if log == nil {
		log = slog.Default()
	}
	cam := NewCamera(cfg)
	if err := cam.Open(); err != nil {
		log.Error("camera unavailable", "device", cfg.DeviceID, "err", err)
		return nil
	}
	log.Info("camera opened", "device", cfg.DeviceID, "fps", cam.FPS())
	return cam
}

// Open opens the camera and requests the configured resolution.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("open device %d: %w", c.cfg.DeviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open device %d: not available", c.cfg.DeviceID)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases the device. Safe to call repeatedly.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
