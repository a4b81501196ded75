package detector

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/darshan/internal/face"
)

// ErrCascadeNotFound is returned when no cascade file can be located.
var ErrCascadeNotFound = errors.New("face cascade not found")

// cascadeConfidence is reported for every cascade hit. Haar cascades have
// no per-detection score; MinNeighbors already rejects weak candidates.
const cascadeConfidence = 1.0

// CascadeProvider implements Provider with an OpenCV Haar cascade.
type CascadeProvider struct {
	config     Config
	classifier gocv.CascadeClassifier
	mu         sync.Mutex
}

// NewCascadeProvider loads the cascade named by config.
func NewCascadeProvider(config Config) (*CascadeProvider, error) {
	path := findCascade(config.CascadePath)
	if path == "" {
		return nil, fmt.Errorf("%w: %s", ErrCascadeNotFound, config.CascadePath)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("load cascade %s", path)
	}

	if config.ScaleFactor <= 1 {
		config.ScaleFactor = DefaultConfig().ScaleFactor
	}

	return &CascadeProvider{
		config:     config,
		classifier: classifier,
	}, nil
}

// Detect runs the cascade on frame. Larger faces come first.
func (d *CascadeProvider) Detect(frame *gocv.Mat) (face.Frame, error) {
	if frame == nil || frame.Empty() {
		return face.Frame{}, errors.New("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.EqualizeHist(gray, &gray)

	minSize := image.Pt(d.config.MinSize, d.config.MinSize)
	rects := d.classifier.DetectMultiScaleWithParams(gray, d.config.ScaleFactor, d.config.MinNeighbors, 0, minSize, image.Pt(0, 0))

	slices.SortStableFunc(rects, func(a, b image.Rectangle) int {
		return area(b) - area(a)
	})

	width, height := frame.Cols(), frame.Rows()
	out := face.Frame{
		Boxes:      make([]face.BoundingBox, 0, len(rects)),
		Width:      width,
		Height:     height,
		CapturedAt: time.Now(),
	}
	for _, r := range rects {
		out.Boxes = append(out.Boxes, face.FromRect(r, width, height, cascadeConfidence))
	}

	return Filter(out, d.config.MinConfidence, d.config.MaxFaces), nil
}

// Close releases the classifier.
func (d *CascadeProvider) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

func findCascade(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			return name
		}
		return ""
	}

	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		name,
		filepath.Join("data", name),
		filepath.Join(execDir, name),
		filepath.Join(execDir, "data", name),
		filepath.Join(os.Getenv("HOME"), ".darshan", name),
		filepath.Join("/usr/share/opencv4/haarcascades", name),
		filepath.Join("/usr/local/share/opencv4/haarcascades", name),
		filepath.Join("/opt/homebrew/share/opencv4/haarcascades", name),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
