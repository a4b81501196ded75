package preview

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"github.com/ayusman/darshan/internal/overlay"
)

// DefaultQuality is the JPEG quality of preview frames.
const DefaultQuality = 75

// Zoom crops the centre 1/scale of img and scales it back up to the original
// size. A scale of 1 or less returns img unchanged.
func Zoom(img image.Image, scale float64) image.Image {
	if scale <= 1 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) / scale)
	h := int(float64(b.Dy()) / scale)
	if w < 1 || h < 1 {
		return img
	}
	cropped := imaging.CropCenter(img, w, h)
	return imaging.Resize(cropped, b.Dx(), b.Dy(), imaging.Linear)
}

// Renderer paints plans onto frames and encodes them for the preview stream.
type Renderer struct {
	Painter *Painter
	Quality int
}

// NewRenderer returns a Renderer with the default painter and quality.
func NewRenderer() *Renderer {
	return &Renderer{Painter: NewPainter(), Quality: DefaultQuality}
}

// Encode paints plan (if any) onto a copy of frame, applies the zoom and
// returns a JPEG. frame itself is not modified.
func (r *Renderer) Encode(frame *gocv.Mat, plan *overlay.Plan, scale float64) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("encode preview: empty frame")
	}

	canvas := frame.Clone()
	defer canvas.Close()

	if plan != nil {
		r.Painter.Paint(&canvas, *plan)
	}

	if scale <= 1 {
		buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, canvas, []int{int(gocv.IMWriteJpegQuality), r.Quality})
		if err != nil {
			return nil, fmt.Errorf("encode preview: %w", err)
		}
		defer buf.Close()
		return append([]byte(nil), buf.GetBytes()...), nil
	}

	img, err := canvas.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert preview: %w", err)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, Zoom(img, scale), imaging.JPEG, imaging.JPEGQuality(r.Quality)); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return out.Bytes(), nil
}
