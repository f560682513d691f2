package repository

import (
	"context"
	"sync"

	"github.com/transitwire-systems/avl-stack/processor/internal/models"
)

// MemoryRepository implements Repository with in-process maps keyed by
// record identity, for tests.
type MemoryRepository struct {
	mu            sync.Mutex
	activities    map[string]models.VehicleActivity
	cancellations map[string]models.Cancellation
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		activities:    make(map[string]models.VehicleActivity),
		cancellations: make(map[string]models.Cancellation),
	}
}

func (r *MemoryRepository) UpsertActivities(_ context.Context, activities []models.VehicleActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range activities {
		r.activities[a.Identity()] = a
	}
	return nil
}

func (r *MemoryRepository) UpsertCancellations(_ context.Context, cancellations []models.Cancellation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cancellations {
		r.cancellations[c.Identity()] = c
	}
	return nil
}

func (r *MemoryRepository) Close() {}

// Activities returns the stored activities, one per logical identity.
func (r *MemoryRepository) Activities() []models.VehicleActivity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.VehicleActivity, 0, len(r.activities))
	for _, a := range r.activities {
		out = append(out, a)
	}
	return out
}

// Cancellations returns the stored cancellations.
func (r *MemoryRepository) Cancellations() []models.Cancellation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Cancellation, 0, len(r.cancellations))
	for _, c := range r.cancellations {
		out = append(out, c)
	}
	return out
}
