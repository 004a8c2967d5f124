package therapists

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Repository defines the interface for therapist lookup
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Therapist, error)
}

// InMemoryRepository is a stub implementation of Repository using in-memory storage
type InMemoryRepository struct {
	mu         sync.RWMutex
	therapists map[uuid.UUID]*Therapist
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		therapists: make(map[uuid.UUID]*Therapist),
	}
}

// Put stores or replaces a therapist record.
func (r *InMemoryRepository) Put(t *Therapist) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *t
	r.therapists[t.ID] = &copied
}

// GetByID retrieves a therapist by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Therapist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.therapists[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}
