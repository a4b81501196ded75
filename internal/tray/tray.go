// Package tray provides a system tray menu for the darshan recorder.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/darshan/internal/gesture"
	"github.com/ayusman/darshan/internal/recorder"
)

// Source tags intents raised from the tray.
const Source = "tray"

// Controls is the part of the session the tray drives.
type Controls interface {
	Calibrating() bool
	SetCalibrating(on bool)
	StartRecording(name, source string) bool
	StopRecording(source string) bool
	RecordingStatus() recorder.Status
}

// Tray represents the system tray application.
type Tray struct {
	controls Controls
	onClear  func()
	onOpen   func()
	onQuit   func()
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuCalibrate *systray.MenuItem
	menuRecord    *systray.MenuItem
	menuLastClip  *systray.MenuItem
}

// New creates a new Tray over the session controls.
func New(c Controls) *Tray {
	return &Tray{controls: c}
}

// OnClear sets the callback for the clear recordings item.
func (t *Tray) OnClear(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClear = fn
}

// OnOpen sets the callback for the open in browser item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Darshan")
	systray.SetTooltip("Darshan face-framing recorder")

	t.mu.Lock()
	t.menuCalibrate = systray.AddMenuItemCheckbox("Calibrate", "Show framing hints", t.controls.Calibrating())
	t.menuRecord = systray.AddMenuItem(recordTitle(t.controls.RecordingStatus()), "Start or stop recording")
	systray.AddSeparator()
	t.menuLastClip = systray.AddMenuItem("Last clip: none", "Most recent recording")
	t.menuLastClip.Disable()
	t.mu.Unlock()

	menuClear := systray.AddMenuItem("Clear recordings", "Delete every recorded clip")
	menuOpen := systray.AddMenuItem("Open in browser...", "Open the preview page")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Darshan")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuCalibrate.ClickedCh:
				t.handleCalibrate()
			case <-t.menuRecord.ClickedCh:
				t.handleRecord()
			case <-menuClear.ClickedCh:
				t.call(func() func() { return t.onClear })
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleCalibrate flips calibration mode.
func (t *Tray) handleCalibrate() {
	on := !t.controls.Calibrating()
	t.controls.SetCalibrating(on)

	t.mu.RLock()
	defer t.mu.RUnlock()
	if on {
		t.menuCalibrate.Check()
	} else {
		t.menuCalibrate.Uncheck()
	}
}

// handleRecord raises the intent that matches the current state.
func (t *Tray) handleRecord() {
	switch recordAction(t.controls.RecordingStatus().State) {
	case gesture.IntentStart:
		t.controls.StartRecording("", Source)
	case gesture.IntentStop:
		t.controls.StopRecording(Source)
	}
}

func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback()
	}
}

// SetStatus updates the menu from a recorder snapshot. Safe to call before
// the tray is ready.
func (t *Tray) SetStatus(s recorder.Status) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuRecord != nil {
		t.menuRecord.SetTitle(recordTitle(s))
	}
	if t.menuLastClip != nil && s.LastClip != nil {
		t.menuLastClip.SetTitle("Last clip: " + clipLabel(s))
	}
}

// recordAction is the intent a click on the record item raises in state.
func recordAction(state recorder.State) gesture.IntentKind {
	if state == recorder.StateIdle {
		return gesture.IntentStart
	}
	return gesture.IntentStop
}

func recordTitle(s recorder.Status) string {
	switch s.State {
	case recorder.StateCountingDown:
		return fmt.Sprintf("Starting in %d... (cancel)", s.Countdown)
	case recorder.StateRecording:
		return "■ Stop recording"
	default:
		return "● Start recording"
	}
}

func clipLabel(s recorder.Status) string {
	if s.LastClip == nil {
		return "none"
	}
	if s.LastClip.Name != "" {
		return s.LastClip.Name
	}
	return s.LastClip.CreatedAt.Local().Format("15:04:05")
}
