package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ayusman/darshan/internal/clips"
)

// ClipsHandler serves the recorded clip list and downloads.
type ClipsHandler struct {
	svc *clips.Service
	log *slog.Logger
}

// NewClipsHandler creates a ClipsHandler over svc.
func NewClipsHandler(svc *clips.Service, log *slog.Logger) *ClipsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ClipsHandler{svc: svc, log: log.With("component", "api")}
}

// Register mounts the clip routes on r.
func (h *ClipsHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/clips", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/clips", h.clear).Methods(http.MethodDelete)
	r.HandleFunc("/api/clips/{id}/download", h.download).Methods(http.MethodGet)
}

type listClipsResponse struct {
	Clips []clipResponse `json:"clips"`
}

type clipResponse struct {
	clips.Clip
	Download string `json:"download"`
}

// list handles GET /api/clips and returns every clip in recording order.
func (h *ClipsHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.log.Error("list clips", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to list clips")
		return
	}

	response := listClipsResponse{Clips: make([]clipResponse, 0, len(list))}
	for _, c := range list {
		response.Clips = append(response.Clips, clipResponse{
			Clip:     c,
			Download: fmt.Sprintf("/api/clips/%s/download", c.ID),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// clear handles DELETE /api/clips and removes every clip.
func (h *ClipsHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context()); err != nil {
		h.log.Error("clear clips", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to clear clips")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// download handles GET /api/clips/{id}/download?filename=name. The
// attachment name defaults to the clip name, then to recording-<id>.
func (h *ClipsHandler) download(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	clip, body, err := h.svc.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, clips.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Clip not found")
			return
		}
		h.log.Error("open clip", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to open clip")
		return
	}
	defer body.Close()

	name := clips.DownloadName(clip, r.URL.Query().Get("filename"))

	w.Header().Set("Content-Type", clips.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if clip.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(clip.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.log.Warn("send clip", "id", id, "err", err)
	}
}
