package capture

import (
	"image"
	"testing"
)

func TestNewActivityMeter(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"explicit", 2.5, 2.5},
		{"zero falls back", 0, 1.0},
		{"negative falls back", -3, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewActivityMeter(tt.threshold)
			defer m.Close()
			if m.threshold != tt.want {
				t.Errorf("threshold = %f, want %f", m.threshold, tt.want)
			}
			if m.primed {
				t.Error("meter should not be primed initially")
			}
		})
	}
}

func TestActivityMeter_StillScene(t *testing.T) {
	m := NewActivityMeter(1.0)
	defer m.Close()

	a := SolidFrame(640, 480, 20, image.Rectangle{})
	defer a.Close()
	b := SolidFrame(640, 480, 20, image.Rectangle{})
	defer b.Close()

	if active, pct := m.Measure(&a); active || pct != 0 {
		t.Errorf("first frame = %v, %f; want primed only", active, pct)
	}
	if active, pct := m.Measure(&b); active || pct != 0 {
		t.Errorf("identical frame = %v, %f; want inactive", active, pct)
	}
}

func TestActivityMeter_MovingSubject(t *testing.T) {
	m := NewActivityMeter(1.0)
	defer m.Close()

	empty := SolidFrame(640, 480, 20, image.Rectangle{})
	defer empty.Close()
	subject := SolidFrame(640, 480, 20, image.Rect(200, 120, 440, 360))
	defer subject.Close()

	m.Measure(&empty)
	active, pct := m.Measure(&subject)
	if !active {
		t.Errorf("subject entering the frame not reported as activity (%.2f%%)", pct)
	}
}

func TestActivityMeter_SizeChangeReprimes(t *testing.T) {
	m := NewActivityMeter(1.0)
	defer m.Close()

	small := SolidFrame(320, 240, 20, image.Rectangle{})
	defer small.Close()
	large := SolidFrame(640, 480, 200, image.Rectangle{})
	defer large.Close()

	m.Measure(&small)
	if active, _ := m.Measure(&large); active {
		t.Error("size change should re-prime rather than report activity")
	}
}

func TestActivityMeter_NilFrame(t *testing.T) {
	m := NewActivityMeter(1.0)
	defer m.Close()

	if active, pct := m.Measure(nil); active || pct != 0 {
		t.Errorf("Measure(nil) = %v, %f", active, pct)
	}
}
