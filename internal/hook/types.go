// Package hook runs external programs when clips are saved or cleared.
//
// Each hook lives in its own directory under the hooks dir with a hook.json
// manifest. The executable receives a Request as JSON on stdin and answers
// with a Response on stdout.
package hook

import (
	"slices"

	"github.com/ayusman/darshan/internal/clips"
)

// Events a hook can subscribe to.
const (
	EventClipSaved    = "clip.saved"
	EventClipsCleared = "clips.cleared"
)

// Manifest describes a hook and the events it wants.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Events      []string `json:"events"`
}

// Request is sent to a hook on stdin.
type Request struct {
	Event string      `json:"event"`
	Clip  *clips.Clip `json:"clip,omitempty"`
	// Media is the absolute path of the clip payload, when known.
	Media string `json:"media,omitempty"`
}

// Response is read back from a hook's stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether h subscribed to event.
func (h *Hook) Handles(event string) bool {
	return slices.Contains(h.Manifest.Events, event)
}
