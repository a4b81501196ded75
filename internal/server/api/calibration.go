package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// CalibrationHandler reads and toggles calibration mode.
type CalibrationHandler struct {
	session Session
}

// NewCalibrationHandler creates a CalibrationHandler.
func NewCalibrationHandler(s Session) *CalibrationHandler {
	return &CalibrationHandler{session: s}
}

// Register mounts the calibration routes on r.
func (h *CalibrationHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/calibration", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/calibration", h.put).Methods(http.MethodPut)
}

type calibrationBody struct {
	Calibrating *bool `json:"calibrating"`
}

type calibrationResponse struct {
	Calibrating bool `json:"calibrating"`
}

func (h *CalibrationHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, calibrationResponse{Calibrating: h.session.Calibrating()})
}

func (h *CalibrationHandler) put(w http.ResponseWriter, r *http.Request) {
	var req calibrationBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Calibrating == nil {
		writeError(w, http.StatusBadRequest, "calibrating is required")
		return
	}

	h.session.SetCalibrating(*req.Calibrating)
	writeJSON(w, http.StatusOK, calibrationResponse{Calibrating: h.session.Calibrating()})
}
