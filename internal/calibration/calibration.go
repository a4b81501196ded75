// Package calibration turns a detected face into a positioning hint for the person in front of the camera.
package calibration

import (
	"github.com/ayusman/darshan/internal/face"
)

// Hint tells the subject how to reposition.
type Hint string

const (
	MoveToCenter Hint = "move_to_center"
	MoveCloser   Hint = "move_closer"
	MoveFarther  Hint = "move_farther"
	Centered     Hint = "centered"
)

// Thresholds, as fractions of the frame width.
const (
	EdgeMargin = 0.15
	MinWidth   = 0.15
	MaxWidth   = 0.6
)

var messages = map[Hint]string{
	MoveToCenter: "Move face to center",
	MoveCloser:   "Move closer",
	MoveFarther:  "Move farther",
	Centered:     "Face centered",
}

// Message returns the text shown to the user for h.
func (h Hint) Message() string {
	if m, ok := messages[h]; ok {
		return m
	}
	return string(h)
}

// Evaluate computes the hint for box inside a width x height frame.
//
// The margin is 0.15 of the frame width and is applied to both axes. A center
// inside the margin wins over any size rule.
func Evaluate(box face.BoundingBox, width, height int) Hint {
	w := float64(width)
	h := float64(height)

	centerX := box.CenterX * w
	centerY := box.CenterY * h
	boxWidth := box.Width * w
	margin := EdgeMargin * w

	switch {
	case centerX < margin || centerX > w-margin || centerY < margin || centerY > h-margin:
		return MoveToCenter
	case boxWidth < MinWidth*w:
		return MoveCloser
	case boxWidth > MaxWidth*w:
		return MoveFarther
	default:
		return Centered
	}
}

// EvaluateFrame returns one hint per box, in box order.
func EvaluateFrame(f face.Frame) []Hint {
	if f.Len() == 0 {
		return nil
	}
	hints := make([]Hint, 0, f.Len())
	for _, b := range f.Boxes {
		hints = append(hints, Evaluate(b, f.Width, f.Height))
	}
	return hints
}
