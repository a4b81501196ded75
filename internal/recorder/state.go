package recorder

import (
	"time"

	"github.com/ayusman/darshan/internal/clips"
)

// State is the recording controller state.
type State string

const (
	StateIdle         State = "idle"
	StateCountingDown State = "counting_down"
	StateRecording    State = "recording"
)

// Status is a snapshot of the controller published to observers.
type Status struct {
	State     State       `json:"state"`
	Countdown int         `json:"countdown"`
	Name      string      `json:"name,omitempty"`
	Chunks    int         `json:"chunks"`
	StartedAt time.Time   `json:"started_at,omitempty"`
	LastClip  *clips.Clip `json:"last_clip,omitempty"`
	Error     string      `json:"error,omitempty"`
}
