package doctor

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrDoctorNotFound is returned when no doctor matches the id within the
// caller's clinic.
var ErrDoctorNotFound = errors.New("doctor not found")

// Repository defines the interface for doctor lookups. All reads are
// clinic-scoped: a doctor id from another clinic resolves to not-found.
type Repository interface {
	GetByID(ctx context.Context, clinicID, doctorID uuid.UUID) (*Doctor, error)
}

// InMemoryRepository is an in-memory Repository used by tests and local runs.
type InMemoryRepository struct {
	mu      sync.RWMutex
	doctors map[uuid.UUID]*Doctor
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{doctors: make(map[uuid.UUID]*Doctor)}
}

// Put stores or replaces a doctor.
func (r *InMemoryRepository) Put(d *Doctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.doctors[d.ID] = &cp
}

// GetByID retrieves a doctor scoped to the clinic.
func (r *InMemoryRepository) GetByID(ctx context.Context, clinicID, doctorID uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[doctorID]
	if !ok || d.ClinicID != clinicID {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}
