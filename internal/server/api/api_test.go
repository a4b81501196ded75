package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/ayusman/darshan/internal/clips"
	"github.com/ayusman/darshan/internal/recorder"
)

type fakeSession struct {
	mu          sync.Mutex
	starts      []string
	stops       int
	full        bool
	calibrating bool
	status      recorder.Status
}

func (f *fakeSession) StartRecording(name, source string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.starts = append(f.starts, name)
	return true
}

func (f *fakeSession) StopRecording(source string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.stops++
	return true
}

func (f *fakeSession) RecordingStatus() recorder.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeSession) Calibrating() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calibrating
}

func (f *fakeSession) SetCalibrating(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calibrating = on
}

// newTestService creates a clip service over memory records and a temp media dir.
func newTestService(t *testing.T) *clips.Service {
	t.Helper()

	media, err := clips.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create media store: %v", err)
	}
	return clips.NewService(clips.NewMemoryRepository(), media, nil)
}

func newRouter(session Session, svc *clips.Service) *mux.Router {
	r := mux.NewRouter()
	var h *ClipsHandler
	if svc != nil {
		h = NewClipsHandler(svc, nil)
	}
	Register(r, session, h)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestClipsHandler_ListEmpty(t *testing.T) {
	r := newRouter(nil, newTestService(t))

	rec := do(t, r, http.MethodGet, "/api/clips", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"clips":[]}` {
		t.Errorf("body = %s, want an empty list", body)
	}
}

func TestClipsHandler_ListAndDownload(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Save(ctx, []byte("first"), "")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := svc.Save(ctx, []byte("second clip"), "Interview")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	r := newRouter(nil, svc)

	rec := do(t, r, http.MethodGet, "/api/clips", "")
	var listed listClipsResponse
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed.Clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(listed.Clips))
	}
	if listed.Clips[0].ID != first.ID || listed.Clips[1].ID != second.ID {
		t.Error("clips not listed in recording order")
	}
	if listed.Clips[1].Download != "/api/clips/"+second.ID+"/download" {
		t.Errorf("download link = %q", listed.Clips[1].Download)
	}

	tests := []struct {
		name     string
		target   string
		wantName string
		wantBody string
	}{
		{"default name", "/api/clips/" + first.ID + "/download", "recording-" + first.ID + ".mjpeg", "first"},
		{"clip name", "/api/clips/" + second.ID + "/download", "Interview.mjpeg", "second clip"},
		{"chosen name", "/api/clips/" + second.ID + "/download?filename=final.webm", "final.mjpeg", "second clip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != clips.MediaType {
				t.Errorf("Content-Type = %s", ct)
			}
			want := `attachment; filename="` + tt.wantName + `"`
			if cd := rec.Header().Get("Content-Disposition"); cd != want {
				t.Errorf("Content-Disposition = %s, want %s", cd, want)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestClipsHandler_DownloadNotFound(t *testing.T) {
	r := newRouter(nil, newTestService(t))

	rec := do(t, r, http.MethodGet, "/api/clips/nope/download", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	var resp errorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Error != "Clip not found" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestClipsHandler_Clear(t *testing.T) {
	svc := newTestService(t)
	svc.Save(context.Background(), []byte("x"), "")

	cleared := 0
	svc.OnClear(func() { cleared++ })

	r := newRouter(nil, svc)
	rec := do(t, r, http.MethodDelete, "/api/clips", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if cleared != 1 {
		t.Errorf("clear listeners ran %d times, want 1", cleared)
	}

	rec = do(t, r, http.MethodGet, "/api/clips", "")
	if body := strings.TrimSpace(rec.Body.String()); body != `{"clips":[]}` {
		t.Errorf("body after clear = %s", body)
	}
}

func TestClipsHandler_MethodNotAllowed(t *testing.T) {
	r := newRouter(nil, newTestService(t))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch} {
		rec := do(t, r, method, "/api/clips", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}

func TestRecordingHandler(t *testing.T) {
	session := &fakeSession{status: recorder.Status{State: recorder.StateCountingDown, Countdown: 3}}
	r := newRouter(session, nil)

	t.Run("status", func(t *testing.T) {
		rec := do(t, r, http.MethodGet, "/api/recording", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var st recorder.Status
		json.NewDecoder(rec.Body).Decode(&st)
		if st.State != recorder.StateCountingDown || st.Countdown != 3 {
			t.Errorf("status = %+v", st)
		}
	})

	t.Run("start with name", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/recording/start", `{"name":"demo"}`)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected status %d, got %d", http.StatusAccepted, rec.Code)
		}
		if len(session.starts) != 1 || session.starts[0] != "demo" {
			t.Errorf("starts = %v", session.starts)
		}
	})

	t.Run("start without body", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/recording/start", "")
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected status %d, got %d", http.StatusAccepted, rec.Code)
		}
	})

	t.Run("start with bad JSON", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/recording/start", `{"name":`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("stop", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/recording/stop", "")
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected status %d, got %d", http.StatusAccepted, rec.Code)
		}
		if session.stops != 1 {
			t.Errorf("stops = %d, want 1", session.stops)
		}
	})

	t.Run("queue full", func(t *testing.T) {
		session.full = true
		defer func() { session.full = false }()

		rec := do(t, r, http.MethodPost, "/api/recording/stop", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
		}
	})
}

func TestCalibrationHandler(t *testing.T) {
	session := &fakeSession{}
	r := newRouter(session, nil)

	rec := do(t, r, http.MethodPut, "/api/calibration", `{"calibrating":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !session.calibrating {
		t.Error("calibration not switched on")
	}

	rec = do(t, r, http.MethodGet, "/api/calibration", "")
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"calibrating":true`)) {
		t.Errorf("body = %s", rec.Body.String())
	}

	for _, body := range []string{`{}`, `nope`} {
		rec = do(t, r, http.MethodPut, "/api/calibration", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("PUT %s: expected status %d, got %d", body, http.StatusBadRequest, rec.Code)
		}
	}
}
