package capture

import (
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)

	if _, err := cam.ReadFrame(); err != ErrCameraNotOpen {
		t.Errorf("ReadFrame() before Open error = %v, want ErrCameraNotOpen", err)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for i := 0; i < 2; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		f.Close()
	}

	// Third read should fail (no loop)
	if _, err := cam.ReadFrame(); err == nil {
		t.Error("expected error after all frames consumed")
	}
	if cam.Reads() != 2 {
		t.Errorf("Reads() = %d, want 2", cam.Reads())
	}
}

func TestMockCamera_Loop(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	defer cam.Close()

	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestSolidFrame(t *testing.T) {
	frame := SolidFrame(320, 240, 10, image.Rect(100, 50, 200, 150))
	defer frame.Close()

	if frame.Cols() != 320 || frame.Rows() != 240 {
		t.Fatalf("size = %dx%d, want 320x240", frame.Cols(), frame.Rows())
	}
	if got := frame.GetVecbAt(100, 150)[0]; got != 230 {
		t.Errorf("pixel inside box = %d, want 230", got)
	}
	if got := frame.GetVecbAt(0, 0)[0]; got != 10 {
		t.Errorf("background pixel = %d, want 10", got)
	}
}
