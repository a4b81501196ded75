package hook

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/ayusman/darshan/internal/clips"
)

// Dispatcher fires hooks in the background so recording never waits on them.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	mediaDir string
	log      *slog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. mediaDir resolves clip media refs to
// absolute paths for hooks; it may be empty.
func NewDispatcher(m *Manager, e *Executor, mediaDir string, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		manager:  m,
		executor: e,
		mediaDir: mediaDir,
		log:      log.With("component", "hooks"),
	}
}

// Attach subscribes the dispatcher to svc's save and clear events.
func (d *Dispatcher) Attach(svc *clips.Service) {
	svc.OnSave(d.ClipSaved)
	svc.OnClear(d.ClipsCleared)
}

// ClipSaved fires clip.saved hooks for c.
func (d *Dispatcher) ClipSaved(c clips.Clip) {
	req := &Request{Event: EventClipSaved, Clip: &c}
	if d.mediaDir != "" && c.MediaRef != "" {
		req.Media = filepath.Join(d.mediaDir, c.MediaRef)
	}
	d.fire(req)
}

// ClipsCleared fires clips.cleared hooks.
func (d *Dispatcher) ClipsCleared() {
	d.fire(&Request{Event: EventClipsCleared})
}

func (d *Dispatcher) fire(req *Request) {
	for _, h := range d.manager.For(req.Event) {
		d.wg.Add(1)
		go func(h *Hook) {
			defer d.wg.Done()
			if _, err := d.executor.Execute(context.Background(), h, req); err != nil {
				d.log.Warn("hook failed", "hook", h.Manifest.Name, "event", req.Event, "err", err)
				return
			}
			d.log.Debug("hook ran", "hook", h.Manifest.Name, "event", req.Event)
		}(h)
	}
}

// Wait blocks until every fired hook has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
