package gesture

import "time"

// IntentKind is a discrete recording command.
type IntentKind string

const (
	IntentStart IntentKind = "start"
	IntentStop  IntentKind = "stop"
)

// Intent is a recording command produced by an input device.
// Name is the optional clip name carried by a start intent.
type Intent struct {
	Kind   IntentKind `json:"kind"`
	Name   string     `json:"name,omitempty"`
	Source string     `json:"source,omitempty"`
	At     time.Time  `json:"at"`
}

// DefaultQueueSize is the intent buffer used when none is given.
const DefaultQueueSize = 16

// Queue decouples input handling from the recording state machine.
// Producers never block: when the buffer is full the intent is dropped.
type Queue struct {
	ch chan Intent
}

// NewQueue creates a Queue holding up to size pending intents.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Intent, size)}
}

// Push enqueues i and reports whether it was accepted.
func (q *Queue) Push(i Intent) bool {
	if i.At.IsZero() {
		i.At = time.Now()
	}
	select {
	case q.ch <- i:
		return true
	default:
		return false
	}
}

// C returns the channel the consumer reads intents from.
func (q *Queue) C() <-chan Intent {
	return q.ch
}

// Len returns the number of pending intents.
func (q *Queue) Len() int {
	return len(q.ch)
}
