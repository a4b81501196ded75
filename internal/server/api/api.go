// Package api provides the JSON HTTP handlers for clips, recording and calibration.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/darshan/internal/recorder"
)

// Session is the part of the running session the handlers drive.
type Session interface {
	StartRecording(name, source string) bool
	StopRecording(source string) bool
	RecordingStatus() recorder.Status
	Calibrating() bool
	SetCalibrating(on bool)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// Register mounts every handler that has a backing service on r.
func Register(r *mux.Router, session Session, clipsHandler *ClipsHandler) {
	if clipsHandler != nil {
		clipsHandler.Register(r)
	}
	if session != nil {
		NewRecordingHandler(session).Register(r)
		NewCalibrationHandler(session).Register(r)
	}
}
