// Command notify is a darshan hook that raises a desktop notification when a
// clip is saved or the clip list is cleared. It uses osascript on macOS and
// notify-send elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// request mirrors the JSON darshan writes to a hook's stdin.
type request struct {
	Event string `json:"event"`
	Clip  *struct {
		ID   string `json:"id"`
		Name string `json:"filename"`
		Size int64  `json:"size"`
	} `json:"clip"`
	Media string `json:"media"`
}

type response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		respond(fmt.Errorf("decode request: %w", err))
		return
	}

	title, body, err := message(req)
	if err != nil {
		respond(err)
		return
	}
	respond(notify(title, body))
}

func message(req request) (string, string, error) {
	switch req.Event {
	case "clip.saved":
		if req.Clip == nil {
			return "", "", fmt.Errorf("clip.saved without clip")
		}
		name := req.Clip.Name
		if name == "" {
			name = req.Clip.ID
		}
		return "Recording saved", fmt.Sprintf("%s (%d KB)", name, req.Clip.Size/1024), nil
	case "clips.cleared":
		return "Recordings cleared", "All clips were removed", nil
	default:
		return "", "", fmt.Errorf("unknown event: %s", req.Event)
	}
}

func notify(title, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		cmd = exec.Command("osascript", "-e", script)
	default:
		cmd = exec.Command("notify-send", "--app-name=darshan", title, body)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, out)
	}
	return nil
}

func respond(err error) {
	resp := response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
