// Package config loads the darshan TOML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "DARSHAN_CONFIG"

// Repository backends.
const (
	RepoSQLite = "sqlite"
	RepoSlot   = "slot"
	RepoMemory = "memory"
)

// Config is the full service configuration.
type Config struct {
	Server   Server   `toml:"server"`
	Camera   Camera   `toml:"camera"`
	Detector Detector `toml:"detector"`
	Recorder Recorder `toml:"recorder"`
	Storage  Storage  `toml:"storage"`
	Hooks    Hooks    `toml:"hooks"`
	Log      Log      `toml:"log"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
	Tray      bool   `toml:"tray"`
}

// Camera selects the capture device.
type Camera struct {
	Device int `toml:"device"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
	FPS    int `toml:"fps"`
}

// Detector tunes face detection.
type Detector struct {
	Cascade           string   `toml:"cascade"`
	MinConfidence     float64  `toml:"min_confidence"`
	MinNeighbors      int      `toml:"min_neighbors"`
	MinSize           int      `toml:"min_size"`
	MaxFaces          int      `toml:"max_faces"`
	IdleFPS           int      `toml:"idle_fps"`
	ActiveFPS         int      `toml:"active_fps"`
	IdleTimeout       Duration `toml:"idle_timeout"`
	ActivityThreshold float64  `toml:"activity_threshold"`
}

// Recorder tunes the recording controller and media capture.
type Recorder struct {
	Countdown   int      `toml:"countdown"`
	Tick        Duration `toml:"tick"`
	Timeslice   Duration `toml:"timeslice"`
	JPEGQuality int      `toml:"jpeg_quality"`
}

// Storage selects where clips live.
type Storage struct {
	DataDir    string `toml:"data_dir"`
	Repository string `toml:"repository"`
	SlotKey    string `toml:"slot_key"`
}

// Hooks configures external programs run on clip events. An empty Dir
// means <data_dir>/hooks.
type Hooks struct {
	Enabled bool     `toml:"enabled"`
	Dir     string   `toml:"dir"`
	Timeout Duration `toml:"timeout"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration is a time.Duration written as a string ("100ms", "2s") in TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:      ":8080",
			StaticDir: "web",
			Tray:      false,
		},
		Camera: Camera{
			Device: 0,
			Width:  640,
			Height: 480,
			FPS:    15,
		},
		Detector: Detector{
			Cascade:           "haarcascade_frontalface_default.xml",
			MinConfidence:     0.5,
			MinNeighbors:      5,
			MinSize:           40,
			IdleFPS:           5,
			ActiveFPS:         15,
			IdleTimeout:       Duration(2 * time.Second),
			ActivityThreshold: 1.0,
		},
		Recorder: Recorder{
			Countdown:   3,
			Tick:        Duration(time.Second),
			Timeslice:   Duration(100 * time.Millisecond),
			JPEGQuality: 85,
		},
		Storage: Storage{
			DataDir:    defaultDataDir(),
			Repository: RepoSQLite,
			SlotKey:    "recordedVideos",
		},
		Hooks: Hooks{
			Enabled: true,
			Timeout: Duration(5 * time.Second),
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".darshan"
	}
	return filepath.Join(home, ".darshan")
}

// Load reads path over the defaults. An empty path falls back to $DARSHAN_CONFIG;
// with neither set the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Camera.FPS <= 0 {
		errs = append(errs, errors.New("camera.fps must be positive"))
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		errs = append(errs, errors.New("detector.min_confidence must be within [0,1]"))
	}
	if c.Recorder.Countdown <= 0 {
		errs = append(errs, errors.New("recorder.countdown must be positive"))
	}
	if c.Recorder.Tick.Std() <= 0 {
		errs = append(errs, errors.New("recorder.tick must be positive"))
	}
	if c.Recorder.Timeslice.Std() <= 0 {
		errs = append(errs, errors.New("recorder.timeslice must be positive"))
	}
	if c.Hooks.Enabled && c.Hooks.Timeout.Std() <= 0 {
		errs = append(errs, errors.New("hooks.timeout must be positive"))
	}
	switch c.Storage.Repository {
	case RepoSQLite, RepoSlot, RepoMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.repository %q is not one of sqlite, slot, memory", c.Storage.Repository))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// DBPath is the SQLite database file under the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.Storage.DataDir, "darshan.db")
}

// MediaDir is where clip media is written.
func (c Config) MediaDir() string {
	return filepath.Join(c.Storage.DataDir, "clips")
}

// HooksDir is the directory scanned for clip hooks.
func (c Config) HooksDir() string {
	if c.Hooks.Dir != "" {
		return c.Hooks.Dir
	}
	return filepath.Join(c.Storage.DataDir, "hooks")
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return l, fmt.Errorf("log.level %q: %w", s, err)
	}
	return l, nil
}
