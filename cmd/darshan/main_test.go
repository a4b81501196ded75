package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/darshan/internal/clips"
	"github.com/ayusman/darshan/internal/config"
	"github.com/ayusman/darshan/internal/store"
)

func TestBrowserURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080/"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000/"},
	}
	for _, tt := range tests {
		if got := browserURL(tt.addr); got != tt.want {
			t.Errorf("browserURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestOpenRepository(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		backend string
		check   func(t *testing.T, r clips.Repository)
	}{
		{config.RepoMemory, func(t *testing.T, r clips.Repository) {
			if _, ok := r.(*clips.MemoryRepository); !ok {
				t.Errorf("got %T, want *clips.MemoryRepository", r)
			}
		}},
		{config.RepoSQLite, func(t *testing.T, r clips.Repository) {
			if _, ok := r.(*store.ClipRepository); !ok {
				t.Errorf("got %T, want *store.ClipRepository", r)
			}
		}},
		{config.RepoSlot, func(t *testing.T, r clips.Repository) {
			if _, ok := r.(*store.SlotRepository); !ok {
				t.Errorf("got %T, want *store.SlotRepository", r)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.DataDir = t.TempDir()
			cfg.Storage.Repository = tt.backend

			repo, closeRepo, err := openRepository(cfg, log)
			if err != nil {
				t.Fatalf("openRepository() error = %v", err)
			}
			defer closeRepo()
			tt.check(t, repo)

			list, err := repo.List(context.Background())
			if err != nil || len(list) != 0 {
				t.Errorf("List() = %v, %v; want empty", list, err)
			}
		})
	}
}

func TestFindWebDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	if got := findWebDir(); got != "" {
		t.Errorf("findWebDir() = %q with no web dir", got)
	}
	if isDir(filepath.Join(dir, "missing")) {
		t.Error("isDir() true for a missing path")
	}
}

func TestAttachHooks(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	media, err := clips.NewDirStore(filepath.Join(t.TempDir(), "clips"))
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}
	svc := clips.NewService(clips.NewMemoryRepository(), media, log)

	cfg := config.Default()
	cfg.Hooks.Dir = t.TempDir()

	if d := attachHooks(cfg, svc, media.Dir(), log); d != nil {
		t.Error("empty hooks dir should not attach a dispatcher")
	}

	hookDir := filepath.Join(cfg.Hooks.Dir, "noop")
	if err := os.MkdirAll(hookDir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest, _ := json.Marshal(map[string]any{
		"name": "noop", "executable": "run.sh", "events": []string{"clip.saved"},
	})
	if err := os.WriteFile(filepath.Join(hookDir, "hook.json"), manifest, 0o644); err != nil {
		t.Fatal(err)
	}

	if d := attachHooks(cfg, svc, media.Dir(), log); d == nil {
		t.Error("installed hook should attach a dispatcher")
	}

	cfg.Hooks.Enabled = false
	if d := attachHooks(cfg, svc, media.Dir(), log); d != nil {
		t.Error("disabled hooks should not attach a dispatcher")
	}
}
