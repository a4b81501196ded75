// Package clips persists recorded clips behind a pluggable repository.
package clips

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Container of every recorded clip.
const (
	MediaType = "video/x-motion-jpeg"
	Extension = ".mjpeg"
)

var (
	// ErrNotFound is returned when a clip does not exist.
	ErrNotFound = errors.New("clip not found")
	// ErrDuplicateID is returned when appending a clip whose ID is already stored.
	ErrDuplicateID = errors.New("duplicate clip id")
)

// Clip is one completed recording. It is never mutated after creation.
// The JSON names match the records the web UI keeps.
type Clip struct {
	ID        string    `json:"id"`
	MediaRef  string    `json:"url"`
	CreatedAt time.Time `json:"timestamp"`
	Name      string    `json:"filename,omitempty"`
	Size      int64     `json:"size"`
}

// Repository stores clip records in insertion order.
// An absent or empty store lists as an empty slice, never an error.
type Repository interface {
	Append(ctx context.Context, c Clip) error
	List(ctx context.Context) ([]Clip, error)
	Clear(ctx context.Context) error
}

// NewID returns a time-ordered unique clip identifier.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate clip id: %w", err)
	}
	return id.String(), nil
}

// DownloadName returns the attachment filename for c. A non-empty override
// wins over the clip name; the extension is always Extension.
func DownloadName(c Clip, override string) string {
	name := sanitize(override)
	if name == "" {
		name = sanitize(c.Name)
	}
	if name == "" {
		name = "recording-" + c.ID
	}
	return name + Extension
}

func sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '"', '/', '\\', '\r', '\n':
			return -1
		}
		return r
	}, name)
	if name == "." || name == ".." {
		return ""
	}
	return strings.TrimSpace(name)
}
