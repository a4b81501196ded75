package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
)

// RecordingHandler exposes the recording controller over HTTP.
// Start and stop only queue intents; the controller decides what they do.
type RecordingHandler struct {
	session Session
}

// NewRecordingHandler creates a RecordingHandler.
func NewRecordingHandler(s Session) *RecordingHandler {
	return &RecordingHandler{session: s}
}

// Register mounts the recording routes on r.
func (h *RecordingHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/recording", h.status).Methods(http.MethodGet)
	r.HandleFunc("/api/recording/start", h.start).Methods(http.MethodPost)
	r.HandleFunc("/api/recording/stop", h.stop).Methods(http.MethodPost)
}

type startRecordingRequest struct {
	Name string `json:"name"`
}

// status handles GET /api/recording.
func (h *RecordingHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.RecordingStatus())
}

// start handles POST /api/recording/start. The body is optional.
func (h *RecordingHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !h.session.StartRecording(req.Name, "http") {
		writeError(w, http.StatusServiceUnavailable, "Too many pending commands")
		return
	}

	writeJSON(w, http.StatusAccepted, h.session.RecordingStatus())
}

// stop handles POST /api/recording/stop.
func (h *RecordingHandler) stop(w http.ResponseWriter, r *http.Request) {
	if !h.session.StopRecording("http") {
		writeError(w, http.StatusServiceUnavailable, "Too many pending commands")
		return
	}

	writeJSON(w, http.StatusAccepted, h.session.RecordingStatus())
}
