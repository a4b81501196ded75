package clips

import (
	"context"
	"sync"
)

// MemoryRepository keeps clips in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	clips []Clip
	ids   map[string]struct{}
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{ids: make(map[string]struct{})}
}

func (r *MemoryRepository) Append(_ context.Context, c Clip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[c.ID]; ok {
		return ErrDuplicateID
	}
	r.ids[c.ID] = struct{}{}
	r.clips = append(r.clips, c)
	return nil
}

func (r *MemoryRepository) List(_ context.Context) ([]Clip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Clip, len(r.clips))
	copy(out, r.clips)
	return out, nil
}

func (r *MemoryRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clips = nil
	r.ids = make(map[string]struct{})
	return nil
}
