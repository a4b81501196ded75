package app

import (
	"github.com/ayusman/darshan/internal/face"
	"github.com/ayusman/darshan/internal/overlay"
)

// Publish turns one detection result into an overlay plan and hands it
// to every subscriber. The canvas follows the frame that was analyzed, so a
// resolution change is picked up on the next cycle.
func (a *App) Publish(f face.Frame) {
	a.mu.Lock()
	a.lastFrame = f
	plan, subs := a.renderLocked()
	a.mu.Unlock()

	for _, fn := range subs {
		fn(plan)
	}
}

// renderLocked rebuilds the plan from lastFrame and the calibrating flag and
// returns it with a copy of the subscribers. a.mu must be held.
func (a *App) renderLocked() (overlay.Plan, []func(overlay.Plan)) {
	f := a.lastFrame
	width, height := f.Width, f.Height
	if (width == 0 || height == 0) && a.feed != nil {
		width, height = a.feed.Size()
	}

	a.plan = overlay.Render(f, width, height, a.calibrating)
	a.hasPlan = true

	subs := make([]func(overlay.Plan), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	return a.plan, subs
}

// Plan returns the latest overlay plan and whether one exists yet.
func (a *App) Plan() (overlay.Plan, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.plan, a.hasPlan
}

// SubscribePlans registers fn for every new plan. The returned func removes it.
func (a *App) SubscribePlans(fn func(overlay.Plan)) (cancel func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}
