// Package overlay computes the draw commands for the face overlay.
//
// Render is a pure function of one detection frame. Drawing the resulting Plan
// onto a real surface is left to a presentation adapter (see package preview),
// which keeps everything here testable without a rendering surface.
package overlay

import (
	"fmt"

	"github.com/ayusman/darshan/internal/calibration"
	"github.com/ayusman/darshan/internal/face"
)

// Style distinguishes the primary subject from every other face.
type Style string

const (
	StylePrimary   Style = "primary"
	StyleSecondary Style = "secondary"
)

// Rect is a stroke rectangle in canvas pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Style  Style   `json:"style"`
}

// FaceHint pairs a face index with its calibration hint.
type FaceHint struct {
	Index   int              `json:"index"`
	Hint    calibration.Hint `json:"hint"`
	Message string           `json:"message"`
}

// Plan is everything needed to redraw the overlay for one cycle.
type Plan struct {
	// Width and Height are the canvas size; they always follow the video frame.
	Width  int  `json:"width"`
	Height int  `json:"height"`
	Clear  bool `json:"clear"`

	Rects       []Rect     `json:"rects"`
	FaceCount   int        `json:"face_count"`
	Status      string     `json:"status"`
	NoFace      bool       `json:"no_face"`
	Multiple    bool       `json:"multiple"`
	Calibrating bool       `json:"calibrating"`
	Hints       []FaceHint `json:"hints,omitempty"`
}

// Render builds the Plan for f on a width x height canvas. Hints are only
// computed while calibrating and only when at least one face is present.
func Render(f face.Frame, width, height int, calibrating bool) Plan {
	p := Plan{
		Width:       width,
		Height:      height,
		Clear:       true,
		Rects:       make([]Rect, 0, f.Len()),
		FaceCount:   f.Len(),
		Calibrating: calibrating,
	}

	w := float64(width)
	h := float64(height)

	for i, b := range f.Boxes {
		style := StyleSecondary
		if i == 0 {
			style = StylePrimary
		}
		p.Rects = append(p.Rects, Rect{
			X:      b.CenterX*w - b.Width*w/2,
			Y:      b.CenterY*h - b.Height*h/2,
			Width:  b.Width * w,
			Height: b.Height * h,
			Style:  style,
		})

		if calibrating {
			hint := calibration.Evaluate(b, width, height)
			p.Hints = append(p.Hints, FaceHint{Index: i, Hint: hint, Message: hint.Message()})
		}
	}

	p.Status = StatusLine(p.FaceCount)
	p.NoFace = p.FaceCount == 0
	p.Multiple = !calibrating && p.FaceCount > 1

	return p
}

// StatusLine is the face count banner shown above the video.
func StatusLine(count int) string {
	switch count {
	case 0:
		return "Warning: No face detected!"
	case 1:
		return "1 face detected"
	default:
		return fmt.Sprintf("%d faces detected", count)
	}
}
