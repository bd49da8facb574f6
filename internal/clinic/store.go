package clinic

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store keeps the clinic and service registry in memory. Constructed once
// at startup and injected; tests create isolated instances.
type Store struct {
	mu       sync.RWMutex
	clinics  map[string]*Clinic // by id
	bySlug   map[string]string  // slug -> id
	services map[string]*Service
}

// NewStore creates an empty registry.
func NewStore() *Store {
	return &Store{
		clinics:  make(map[string]*Clinic),
		bySlug:   make(map[string]string),
		services: make(map[string]*Service),
	}
}

// Register adds a clinic, assigning an id if absent.
func (s *Store) Register(ctx context.Context, c Clinic) (*Clinic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.bySlug[c.Slug]; taken {
		return nil, ErrDuplicateSlug
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	stored := c
	s.clinics[stored.ID] = &stored
	s.bySlug[stored.Slug] = stored.ID

	out := stored
	return &out, nil
}

// GetBySlug resolves a clinic by its public URL slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*Clinic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySlug[slug]
	if !ok {
		return nil, ErrClinicNotFound
	}
	out := *s.clinics[id]
	return &out, nil
}

// GetByID resolves a clinic by id.
func (s *Store) GetByID(ctx context.Context, id string) (*Clinic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clinics[id]
	if !ok {
		return nil, ErrClinicNotFound
	}
	out := *c
	return &out, nil
}

// AddService registers a service under its clinic.
func (s *Store) AddService(ctx context.Context, svc Service) (*Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clinics[svc.ClinicID]; !ok {
		return nil, ErrClinicNotFound
	}
	if svc.ID == "" {
		svc.ID = uuid.New().String()
	}
	stored := svc
	s.services[stored.ID] = &stored

	out := stored
	return &out, nil
}

// GetService returns the service only when it belongs to clinicID. A match
// on id alone is not enough; lookups are always clinic-qualified.
func (s *Store) GetService(ctx context.Context, clinicID, serviceID string) (*Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[serviceID]
	if !ok || svc.ClinicID != clinicID {
		return nil, ErrServiceNotFound
	}
	out := *svc
	return &out, nil
}

// UpdateService replaces mutable service fields (name, duration, active).
func (s *Store) UpdateService(ctx context.Context, clinicID, serviceID string, name string, durationMinutes int, active bool) (*Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[serviceID]
	if !ok || svc.ClinicID != clinicID {
		return nil, ErrServiceNotFound
	}
	svc.Name = name
	svc.DurationMinutes = durationMinutes
	svc.Active = active

	out := *svc
	return &out, nil
}
