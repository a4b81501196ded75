package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/darshan/internal/app"
	"github.com/ayusman/darshan/internal/overlay"
	"github.com/ayusman/darshan/internal/preview"
)

// streamInterval paces the preview at roughly 15 FPS.
const streamInterval = 66 * time.Millisecond

// StreamHandler serves the live preview as MJPEG, with the overlay painted
// in and the current zoom applied.
type StreamHandler struct {
	app      *app.App
	renderer *preview.Renderer
	log      *slog.Logger
}

// NewStreamHandler creates a new StreamHandler for the session.
func NewStreamHandler(a *app.App, log *slog.Logger) *StreamHandler {
	if log == nil {
		log = slog.Default()
	}
	return &StreamHandler{
		app:      a,
		renderer: preview.NewRenderer(),
		log:      log.With("component", "stream"),
	}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	feed := h.app.Feed()
	if feed == nil {
		http.Error(w, "No camera stream", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		// Only send when the camera produced something new
		seq := feed.Seq()
		if seq == lastSeq {
			continue
		}

		frame, err := feed.ReadFrame()
		if err != nil {
			continue
		}
		lastSeq = seq

		var plan *overlay.Plan
		if p, ok := h.app.Plan(); ok {
			plan = &p
		}

		data, err := h.renderer.Encode(frame, plan, h.app.Zoom().Scale())
		frame.Close()
		if err != nil {
			h.log.Debug("encode preview", "err", err)
			continue
		}

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
		if _, err := w.Write(data); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
