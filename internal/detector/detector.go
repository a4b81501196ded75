// Package detector finds faces in camera frames and drives detection at an adaptive cadence.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/darshan/internal/face"
)

// Provider defines the interface for face detection implementations.
type Provider interface {
	// Detect analyzes a video frame and returns the faces found in it.
	// A frame with no faces yields a face.Frame with no boxes.
	Detect(frame *gocv.Mat) (face.Frame, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// CascadePath is the Haar cascade file. Relative names are searched for
	// in the working directory, next to the executable and in the OpenCV data dirs.
	CascadePath string

	// ScaleFactor is the image pyramid step used by the cascade (> 1.0).
	ScaleFactor float64

	// MinNeighbors is how many overlapping hits a candidate needs to be kept.
	MinNeighbors int

	// MinSize is the smallest face edge, in pixels, worth reporting.
	MinSize int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MaxFaces caps the faces reported per frame; 0 means no cap.
	MaxFaces int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		CascadePath:   "haarcascade_frontalface_default.xml",
		ScaleFactor:   1.1,
		MinNeighbors:  5,
		MinSize:       40,
		MinConfidence: 0.5,
	}
}

// Filter drops boxes below minConfidence or outside the unit square and
// keeps at most maxFaces of the rest, preserving order.
func Filter(f face.Frame, minConfidence float64, maxFaces int) face.Frame {
	kept := make([]face.BoundingBox, 0, len(f.Boxes))
	for _, b := range f.Boxes {
		if b.Confidence < minConfidence || !b.Valid() {
			continue
		}
		kept = append(kept, b)
		if maxFaces > 0 && len(kept) == maxFaces {
			break
		}
	}
	f.Boxes = kept
	return f
}
