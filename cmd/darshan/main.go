package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/darshan/internal/app"
	"github.com/ayusman/darshan/internal/capture"
	"github.com/ayusman/darshan/internal/clips"
	"github.com/ayusman/darshan/internal/config"
	"github.com/ayusman/darshan/internal/detector"
	"github.com/ayusman/darshan/internal/hook"
	"github.com/ayusman/darshan/internal/media"
	"github.com/ayusman/darshan/internal/recorder"
	"github.com/ayusman/darshan/internal/server"
	"github.com/ayusman/darshan/internal/store"
	"github.com/ayusman/darshan/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (default $"+config.EnvPath+")")
	withTray := flag.Bool("tray", false, "show the system tray menu")
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "darshan: %v\n", err)
		os.Exit(2)
	}
	if *withTray {
		cfg.Server.Tray = true
	}

	if *printConfig {
		data, err := cfg.Encode()
		if err != nil {
			fmt.Fprintf(os.Stderr, "darshan: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		return
	}

	log := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("darshan stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	repo, closeRepo, err := openRepository(cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	mediaStore, err := clips.NewDirStore(cfg.MediaDir())
	if err != nil {
		return fmt.Errorf("open media directory: %w", err)
	}
	svc := clips.NewService(repo, mediaStore, log)

	if hooks := attachHooks(cfg, svc, mediaStore.Dir(), log); hooks != nil {
		defer hooks.Wait()
	}

	cam := capture.Acquire(capture.Config{
		DeviceID: cfg.Camera.Device,
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
		FPS:      cfg.Camera.FPS,
	}, log)

	var provider detector.Provider
	if cam != nil {
		dc := detector.DefaultConfig()
		dc.CascadePath = cfg.Detector.Cascade
		dc.MinNeighbors = cfg.Detector.MinNeighbors
		dc.MinSize = cfg.Detector.MinSize
		dc.MinConfidence = cfg.Detector.MinConfidence
		dc.MaxFaces = cfg.Detector.MaxFaces
		if p, err := detector.NewCascadeProvider(dc); err != nil {
			log.Error("face detection unavailable", "err", err)
		} else {
			provider = p
		}
	}

	a := app.New(app.Config{
		Camera:   cam,
		Provider: provider,
		Clips:    svc,
		FeedFPS:  cfg.Camera.FPS,
		Runner: detector.RunnerConfig{
			IdleFPS:           cfg.Detector.IdleFPS,
			ActiveFPS:         cfg.Detector.ActiveFPS,
			IdleTimeout:       cfg.Detector.IdleTimeout.Std(),
			ActivityThreshold: cfg.Detector.ActivityThreshold,
			MinConfidence:     cfg.Detector.MinConfidence,
			MaxFaces:          cfg.Detector.MaxFaces,
		},
		Recorder: recorder.Config{
			Countdown: cfg.Recorder.Countdown,
			Tick:      cfg.Recorder.Tick.Std(),
		},
		Media: []media.Option{
			media.WithTimeslice(cfg.Recorder.Timeslice.Std()),
			media.WithQuality(cfg.Recorder.JPEGQuality),
		},
		Logger: log,
	})
	defer a.Close()

	webDir := cfg.Server.StaticDir
	if webDir == "" || !isDir(webDir) {
		webDir = findWebDir()
	}
	if webDir != "" {
		log.Info("serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       a,
		Logger:    log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx) })
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.Server.Addr) })

	if cfg.Server.Tray {
		t := tray.New(a)
		t.OnClear(func() {
			if err := svc.Clear(context.Background()); err != nil {
				log.Error("clear recordings", "err", err)
			}
		})
		t.OnOpen(func() { openBrowser(browserURL(cfg.Server.Addr), log) })
		t.OnQuit(stop)
		a.Recorder().Subscribe(t.SetStatus)

		go func() {
			<-gctx.Done()
			t.Quit()
		}()
		// systray needs the main goroutine
		t.Run()
		stop()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openRepository returns the clip repository selected by the config and a
// func that releases it.
func openRepository(cfg config.Config, log *slog.Logger) (clips.Repository, func(), error) {
	if cfg.Storage.Repository == config.RepoMemory {
		log.Warn("clips are kept in memory and lost on exit")
		return clips.NewMemoryRepository(), func() {}, nil
	}

	st, err := store.New(cfg.DBPath(), store.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	closeStore := func() {
		if err := st.Close(); err != nil {
			log.Error("close store", "err", err)
		}
	}

	if cfg.Storage.Repository == config.RepoSlot {
		return st.Slot(cfg.Storage.SlotKey), closeStore, nil
	}
	return st.Clips(), closeStore, nil
}

// attachHooks discovers clip hooks and subscribes them to svc. It returns nil
// when hooks are disabled or none are installed.
func attachHooks(cfg config.Config, svc *clips.Service, mediaDir string, log *slog.Logger) *hook.Dispatcher {
	if !cfg.Hooks.Enabled {
		return nil
	}
	m := hook.NewManager(cfg.HooksDir(), log)
	if err := m.Discover(); err != nil {
		log.Warn("discover hooks", "dir", m.Dir(), "err", err)
		return nil
	}
	if len(m.List()) == 0 {
		return nil
	}
	d := hook.NewDispatcher(m, hook.NewExecutor(cfg.Hooks.Timeout.Std()), mediaDir, log)
	d.Attach(svc)
	return d
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.darshan/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if isDir(p) {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".darshan", "web")
	if isDir(homeWebDir) {
		return homeWebDir
	}

	return ""
}

func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string, log *slog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Error("open browser", "url", url, "err", err)
		return
	}
	go cmd.Wait()
}
