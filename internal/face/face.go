// Package face defines the detection results shared by the detector, overlay and calibration packages.
package face

import (
	"image"
	"time"
)

// BoundingBox is one detected face, normalized to the frame.
// All coordinates lie in [0,1].
type BoundingBox struct {
	CenterX    float64 `json:"center_x"`
	CenterY    float64 `json:"center_y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Frame is the set of boxes reported by one detection cycle.
// Boxes keep the order the provider returned them in; index 0 is the primary subject.
type Frame struct {
	Boxes      []BoundingBox `json:"boxes"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	CapturedAt time.Time     `json:"captured_at"`
}

// Len returns the number of faces in the frame.
func (f Frame) Len() int {
	return len(f.Boxes)
}

// Primary returns the first box, if any.
func (f Frame) Primary() (BoundingBox, bool) {
	if len(f.Boxes) == 0 {
		return BoundingBox{}, false
	}
	return f.Boxes[0], true
}

// FromRect converts a pixel rectangle within a width x height frame into a
// normalized BoundingBox. The rectangle is clipped to the frame first so the
// result never leaves [0,1].
func FromRect(r image.Rectangle, width, height int, confidence float64) BoundingBox {
	if width <= 0 || height <= 0 {
		return BoundingBox{Confidence: confidence}
	}

	r = r.Canon().Intersect(image.Rect(0, 0, width, height))
	w := float64(width)
	h := float64(height)

	return BoundingBox{
		CenterX:    clamp01((float64(r.Min.X) + float64(r.Dx())/2) / w),
		CenterY:    clamp01((float64(r.Min.Y) + float64(r.Dy())/2) / h),
		Width:      clamp01(float64(r.Dx()) / w),
		Height:     clamp01(float64(r.Dy()) / h),
		Confidence: confidence,
	}
}

// Valid reports whether every coordinate of b lies within [0,1].
func (b BoundingBox) Valid() bool {
	return in01(b.CenterX) && in01(b.CenterY) && in01(b.Width) && in01(b.Height)
}

func in01(v float64) bool {
	return v >= 0 && v <= 1
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
