package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is a simple in-memory tenant registry for tests and early
// development.
type MemoryRepo struct {
	mu sync.Mutex

	Profiles map[string]Profile
	Clinics  map[string]Clinic
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		Profiles: map[string]Profile{},
		Clinics:  map[string]Clinic{},
	}
}

func (r *MemoryRepo) GetProfile(_ context.Context, userID string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Profiles[userID]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return p, nil
}

func (r *MemoryRepo) GetClinic(_ context.Context, clinicID string) (Clinic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.Clinics[clinicID]
	if !ok {
		return Clinic{}, ErrClinicNotFound
	}
	return c, nil
}

func (r *MemoryRepo) CreateClinic(_ context.Context, c Clinic) (Clinic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := r.Clinics[c.ID]; ok {
		return Clinic{}, ErrClinicExists
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.Clinics[c.ID] = c
	return c, nil
}

func (r *MemoryRepo) CreateClinicForUser(_ context.Context, userID, name string) (Clinic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Profiles[userID]
	if !ok {
		return Clinic{}, ErrProfileNotFound
	}
	if p.ClinicID != "" {
		return Clinic{}, ErrAlreadyAssigned
	}
	if name == "" {
		name = "Clinic for " + p.Email
	}
	now := time.Now().UTC()
	c := Clinic{
		ID:                uuid.NewString(),
		Name:              name,
		AirtableTableName: "Calls",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.Clinics[c.ID] = c
	p.ClinicID = c.ID
	r.Profiles[userID] = p
	return c, nil
}

func (r *MemoryRepo) AssignClinic(_ context.Context, userID, clinicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Clinics[clinicID]; !ok {
		return ErrClinicNotFound
	}
	p, ok := r.Profiles[userID]
	if !ok {
		return ErrProfileNotFound
	}
	p.ClinicID = clinicID
	r.Profiles[userID] = p
	return nil
}

func (r *MemoryRepo) UpdateAirtableConfig(_ context.Context, clinicID, baseID, tableName string, displayFields []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.Clinics[clinicID]
	if !ok {
		return ErrClinicNotFound
	}
	c.AirtableBaseID = baseID
	c.AirtableTableName = tableName
	c.DisplayFields = displayFields
	c.UpdatedAt = time.Now().UTC()
	r.Clinics[clinicID] = c
	return nil
}
