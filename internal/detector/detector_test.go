package detector

import (
	"errors"
	"testing"

	"github.com/ayusman/darshan/internal/face"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MinConfidence != 0.5 {
		t.Errorf("MinConfidence = %f, want 0.5", cfg.MinConfidence)
	}
	if cfg.ScaleFactor <= 1 {
		t.Errorf("ScaleFactor = %f, want > 1", cfg.ScaleFactor)
	}
	if cfg.MinNeighbors <= 0 {
		t.Errorf("MinNeighbors = %d, want > 0", cfg.MinNeighbors)
	}
}

func TestFilter(t *testing.T) {
	strong := face.BoundingBox{CenterX: 0.5, CenterY: 0.5, Width: 0.2, Height: 0.2, Confidence: 0.9}
	weak := face.BoundingBox{CenterX: 0.2, CenterY: 0.2, Width: 0.1, Height: 0.1, Confidence: 0.3}
	edge := face.BoundingBox{CenterX: 0.7, CenterY: 0.5, Width: 0.2, Height: 0.2, Confidence: 0.5}
	broken := face.BoundingBox{CenterX: 1.4, CenterY: 0.5, Width: 0.2, Height: 0.2, Confidence: 0.9}

	tests := []struct {
		name     string
		boxes    []face.BoundingBox
		maxFaces int
		want     []face.BoundingBox
	}{
		{"empty", nil, 0, []face.BoundingBox{}},
		{"drops weak", []face.BoundingBox{strong, weak}, 0, []face.BoundingBox{strong}},
		{"keeps threshold", []face.BoundingBox{edge}, 0, []face.BoundingBox{edge}},
		{"drops out of range", []face.BoundingBox{broken, strong}, 0, []face.BoundingBox{strong}},
		{"caps count in order", []face.BoundingBox{strong, edge}, 1, []face.BoundingBox{strong}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(face.Frame{Boxes: tt.boxes, Width: 640, Height: 480}, 0.5, tt.maxFaces)
			if len(got.Boxes) != len(tt.want) {
				t.Fatalf("got %d boxes, want %d", len(got.Boxes), len(tt.want))
			}
			for i := range tt.want {
				if got.Boxes[i] != tt.want[i] {
					t.Errorf("box %d = %+v, want %+v", i, got.Boxes[i], tt.want[i])
				}
			}
			if got.Width != 640 || got.Height != 480 {
				t.Errorf("frame size lost: %dx%d", got.Width, got.Height)
			}
		})
	}
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider()

	got, err := m.Detect(nil)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("default result has %d faces, want 0", got.Len())
	}

	m.SetFrame(face.Frame{Boxes: []face.BoundingBox{CenteredFace()}})
	got, _ = m.Detect(nil)
	if got.Len() != 1 {
		t.Errorf("scripted result has %d faces, want 1", got.Len())
	}
	if got.CapturedAt.IsZero() {
		t.Error("CapturedAt should be stamped")
	}

	boom := errors.New("boom")
	m.SetError(boom)
	if _, err := m.Detect(nil); !errors.Is(err, boom) {
		t.Errorf("Detect() error = %v, want %v", err, boom)
	}

	if m.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", m.Calls())
	}

	m.Close()
	if !m.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestFindCascade(t *testing.T) {
	if got := findCascade(""); got != "" {
		t.Errorf("findCascade(\"\") = %q", got)
	}
	if got := findCascade("/definitely/not/here.xml"); got != "" {
		t.Errorf("findCascade(missing abs) = %q", got)
	}

	dir := t.TempDir()
	t.Chdir(dir)
	if got := findCascade("nope.xml"); got != "" {
		t.Errorf("findCascade(missing rel) = %q", got)
	}
}

func TestNewCascadeProvider_Missing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CascadePath = "/definitely/not/here.xml"

	if _, err := NewCascadeProvider(cfg); !errors.Is(err, ErrCascadeNotFound) {
		t.Errorf("NewCascadeProvider() error = %v, want ErrCascadeNotFound", err)
	}
}
