package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Activity measurement constants
const (
	// ActivityBlurSize is the Gaussian kernel used before differencing.
	ActivityBlurSize = 21
	// ActivityPixelDelta is the per-pixel intensity change that counts as activity.
	ActivityPixelDelta = 25
)

// ActivityMeter scores how much of the scene changed since the previous
// frame. The detection runner uses it to pick its cadence.
type ActivityMeter struct {
	threshold float64
	prev      gocv.Mat
	primed    bool
	mu        sync.Mutex
}

// NewActivityMeter returns a meter that reports activity once more than
// threshold percent of the pixels change.
func NewActivityMeter(threshold float64) *ActivityMeter {
	if threshold <= 0 {
		threshold = 1.0
	}
	return &ActivityMeter{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Measure compares frame with the previous one. It returns whether the scene
// is active and the percentage of changed pixels. The first frame only
// primes the meter. Frames whose size differs from the previous one re-prime it.
func (m *ActivityMeter) Measure(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	smooth := gocv.NewMat()
	defer smooth.Close()
	gocv.GaussianBlur(gray, &smooth, image.Pt(ActivityBlurSize, ActivityBlurSize), 0, 0, gocv.BorderDefault)

	if !m.primed || m.prev.Rows() != smooth.Rows() || m.prev.Cols() != smooth.Cols() {
		smooth.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(smooth, m.prev, &diff)
	gocv.Threshold(diff, &diff, ActivityPixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100.0
	smooth.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Close releases the stored frame.
func (m *ActivityMeter) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prev.Close()
	m.prev = gocv.NewMat()
	m.primed = false
}
