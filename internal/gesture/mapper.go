// Package gesture maps raw touch input from mobile clients to zoom levels and recording intents.
package gesture

import (
	"math"
	"regexp"
	"sync"
)

// Zoom bounds and pinch sensitivity.
const (
	MinZoom      = 1.0
	MaxZoom      = 3.0
	PinchDivisor = 200.0
)

// Swipe thresholds. Velocity is in pixels per millisecond.
const (
	SwipeMinVelocity = 0.3
	SwipeMinDistance = 30.0
)

var mobileAgent = regexp.MustCompile(`(?i)Mobi|Android`)

// IsMobile reports whether userAgent identifies a touch-capable mobile device.
func IsMobile(userAgent string) bool {
	return mobileAgent.MatchString(userAgent)
}

// ZoomFor maps a pinch offset to a zoom scale clamped to [MinZoom, MaxZoom].
func ZoomFor(d float64) float64 {
	return clamp(1+d/PinchDivisor, MinZoom, MaxZoom)
}

// Zoom holds the current preview zoom. It only scales the preview; the
// captured frames keep their resolution.
type Zoom struct {
	mu    sync.RWMutex
	scale float64
	raw   float64
}

// NewZoom returns a Zoom at scale 1.
func NewZoom() *Zoom {
	return &Zoom{scale: MinZoom, raw: MinZoom}
}

// Pinch applies a pinch offset. It returns the clamped scale and the raw,
// unclamped value a client may use to rubber-band past the bounds.
func (z *Zoom) Pinch(d float64) (scale, raw float64) {
	z.mu.Lock()
	defer z.mu.Unlock()

	z.raw = 1 + d/PinchDivisor
	z.scale = clamp(z.raw, MinZoom, MaxZoom)
	return z.scale, z.raw
}

// Scale returns the current clamped scale.
func (z *Zoom) Scale() float64 {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.scale
}

// Reset returns the zoom to 1.
func (z *Zoom) Reset() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.scale = MinZoom
	z.raw = MinZoom
}

// Swipe is a completed horizontal drag.
type Swipe struct {
	DeltaX    float64 `json:"dx"`
	VelocityX float64 `json:"vx"`
}

// Direction returns 1 for a qualifying rightward swipe, -1 for leftward and
// 0 when the swipe is too slow or too short.
func (s Swipe) Direction() int {
	if math.Abs(s.VelocityX) < SwipeMinVelocity || math.Abs(s.DeltaX) < SwipeMinDistance {
		return 0
	}
	if s.DeltaX > 0 {
		return 1
	}
	return -1
}

// Mapper turns gestures from one client into zoom updates and queued intents.
// Clients that are not mobile are ignored entirely.
type Mapper struct {
	mobile bool
	source string
	zoom   *Zoom
	queue  *Queue
}

// NewMapper creates a Mapper for a client identified by userAgent.
func NewMapper(userAgent, source string, zoom *Zoom, queue *Queue) *Mapper {
	return &Mapper{
		mobile: IsMobile(userAgent),
		source: source,
		zoom:   zoom,
		queue:  queue,
	}
}

// Mobile reports whether gestures from this client are honoured.
func (m *Mapper) Mobile() bool {
	return m.mobile
}

// Pinch updates the zoom and returns the clamped scale with the unclamped
// overshoot. ok is false when the gesture was ignored.
func (m *Mapper) Pinch(d float64) (scale, raw float64, ok bool) {
	if !m.mobile || m.zoom == nil {
		return 0, 0, false
	}
	scale, raw = m.zoom.Pinch(d)
	return scale, raw, true
}

// Swipe maps s to an intent and queues it. Guards on the recording state
// (already recording, countdown pending) belong to the consumer.
func (m *Mapper) Swipe(s Swipe) (Intent, bool) {
	if !m.mobile {
		return Intent{}, false
	}

	var kind IntentKind
	switch s.Direction() {
	case 1:
		kind = IntentStart
	case -1:
		kind = IntentStop
	default:
		return Intent{}, false
	}

	intent := Intent{Kind: kind, Source: m.source}
	if m.queue != nil && !m.queue.Push(intent) {
		return intent, false
	}
	return intent, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
