package clips

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MediaStore holds clip payloads. Refs it returns are what Clip.MediaRef records.
type MediaStore interface {
	Put(ctx context.Context, id string, data []byte) (ref string, err error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Remove(ctx context.Context, ref string) error
	Purge(ctx context.Context) error
}

// DirStore writes each clip as one file in a directory.
type DirStore struct {
	dir string
}

// NewDirStore creates dir if needed and returns a store rooted there.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the root directory.
func (s *DirStore) Dir() string {
	return s.dir
}

func (s *DirStore) Put(_ context.Context, id string, data []byte) (string, error) {
	name := filepath.Base(id) + Extension
	tmp, err := os.CreateTemp(s.dir, ".clip-*")
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close media file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("commit media file: %w", err)
	}
	return name, nil
}

func (s *DirStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(ref)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open media file: %w", err)
	}
	return f, nil
}

// Remove deletes the payload behind ref. A missing file is not an error.
func (s *DirStore) Remove(_ context.Context, ref string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(ref)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}

// Purge removes every clip file. Unrelated files are left alone.
func (s *DirStore) Purge(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read media dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return nil
}
