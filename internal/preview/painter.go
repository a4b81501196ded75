// Package preview draws overlay plans onto frames and encodes the zoomed preview.
package preview

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/darshan/internal/overlay"
)

// Overlay colours.
var (
	Lime  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Painter draws a Plan onto a BGR frame.
type Painter struct {
	Primary   color.RGBA
	Secondary color.RGBA
	Text      color.RGBA
	Thickness int
	FontScale float64
}

// NewPainter returns a Painter with lime primary boxes, red secondary boxes
// and a 2px stroke.
func NewPainter() *Painter {
	return &Painter{
		Primary:   Lime,
		Secondary: Red,
		Text:      White,
		Thickness: 2,
		FontScale: 0.6,
	}
}

// Paint draws p onto dst. Plans computed for a different canvas size are
// scaled to dst.
func (pt *Painter) Paint(dst *gocv.Mat, p overlay.Plan) {
	if dst == nil || dst.Empty() {
		return
	}

	sx, sy := 1.0, 1.0
	if p.Width > 0 && p.Height > 0 {
		sx = float64(dst.Cols()) / float64(p.Width)
		sy = float64(dst.Rows()) / float64(p.Height)
	}

	rects := make([]image.Rectangle, len(p.Rects))
	for i, r := range p.Rects {
		rects[i] = image.Rect(
			int(r.X*sx), int(r.Y*sy),
			int((r.X+r.Width)*sx), int((r.Y+r.Height)*sy),
		)
		c := pt.Secondary
		if r.Style == overlay.StylePrimary {
			c = pt.Primary
		}
		gocv.Rectangle(dst, rects[i], c, pt.Thickness)
	}

	for _, h := range p.Hints {
		if h.Index < 0 || h.Index >= len(rects) {
			continue
		}
		at := rects[h.Index].Min.Add(image.Pt(0, -8))
		if at.Y < 16 {
			at.Y = rects[h.Index].Max.Y + 20
		}
		gocv.PutText(dst, h.Message, at, gocv.FontHersheySimplex, pt.FontScale, pt.Text, pt.Thickness)
	}

	banner := pt.Text
	if p.NoFace {
		banner = pt.Secondary
	}
	gocv.PutText(dst, p.Status, image.Pt(10, 24), gocv.FontHersheySimplex, pt.FontScale, banner, pt.Thickness)

	if p.Multiple {
		gocv.PutText(dst, "Multiple faces detected", image.Pt(10, 48), gocv.FontHersheySimplex, pt.FontScale, pt.Secondary, pt.Thickness)
	}
}
