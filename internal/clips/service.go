package clips

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Service pairs a record repository with the media payloads it points at.
type Service struct {
	repo  Repository
	media MediaStore
	log   *slog.Logger
	now   func() time.Time

	mu      sync.Mutex
	onSave  []func(Clip)
	onClear []func()
}

// NewService creates a Service. A nil logger falls back to slog.Default.
func NewService(repo Repository, media MediaStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:  repo,
		media: media,
		log:   log.With("component", "clips"),
		now:   time.Now,
	}
}

// OnSave registers fn to run after every successful Save.
func (s *Service) OnSave(fn func(Clip)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSave = append(s.onSave, fn)
}

// OnClear registers fn to run after every successful Clear.
func (s *Service) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}

// Save stores data as a new clip and appends its record.
func (s *Service) Save(ctx context.Context, data []byte, name string) (Clip, error) {
	id, err := NewID()
	if err != nil {
		return Clip{}, err
	}

	ref, err := s.media.Put(ctx, id, data)
	if err != nil {
		return Clip{}, fmt.Errorf("store media: %w", err)
	}

	c := Clip{
		ID:        id,
		MediaRef:  ref,
		CreatedAt: s.now().UTC(),
		Name:      name,
		Size:      int64(len(data)),
	}
	if err := s.repo.Append(ctx, c); err != nil {
		// The caller's ctx may be what failed the append.
		if rerr := s.media.Remove(context.WithoutCancel(ctx), ref); rerr != nil {
			s.log.Warn("remove orphaned media", "ref", ref, "err", rerr)
		}
		return Clip{}, fmt.Errorf("append clip: %w", err)
	}

	s.log.Info("clip saved", "id", c.ID, "bytes", c.Size, "name", c.Name)

	s.mu.Lock()
	listeners := append([]func(Clip){}, s.onSave...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(c)
	}
	return c, nil
}

// List returns every clip in insertion order.
func (s *Service) List(ctx context.Context) ([]Clip, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Clip{}
	}
	return list, nil
}

// Get returns the clip with the given id.
func (s *Service) Get(ctx context.Context, id string) (Clip, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return Clip{}, err
	}
	for _, c := range list {
		if c.ID == id {
			return c, nil
		}
	}
	return Clip{}, ErrNotFound
}

// Open returns the clip and a reader over its media. The caller closes the reader.
func (s *Service) Open(ctx context.Context, id string) (Clip, io.ReadCloser, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return Clip{}, nil, err
	}
	rc, err := s.media.Open(ctx, c.MediaRef)
	if err != nil {
		return Clip{}, nil, err
	}
	return c, rc, nil
}

// Clear removes every clip record and payload, then notifies listeners.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear clips: %w", err)
	}
	if err := s.media.Purge(ctx); err != nil {
		s.log.Warn("purge media", "err", err)
	}

	s.mu.Lock()
	listeners := append([]func(){}, s.onClear...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	s.log.Info("clips cleared")
	return nil
}
