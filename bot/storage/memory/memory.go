// Package memory is an in-process storage backend for tests and local runs.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/woofinder/bot/geo"
	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/storage"
)

// Store keeps every collection in mutex-guarded maps.
type Store struct {
	mu      sync.RWMutex
	users   map[int64]models.User
	species map[string]models.Species
	pets    map[string]models.Pet
	reports map[string]models.Report
	now     func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Option customises a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSpecies seeds the species catalogue.
func WithSpecies(species ...models.Species) Option {
	return func(s *Store) {
		for _, sp := range species {
			s.species[sp.ID] = sp
		}
	}
}

// New builds an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		users:   make(map[int64]models.User),
		species: make(map[string]models.Species),
		pets:    make(map[string]models.Pet),
		reports: make(map[string]models.Report),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultSpecies mirrors the rows seeded by the initial migration.
func DefaultSpecies() []models.Species {
	return []models.Species{
		{ID: "0b7e5c1a-8d3f-4f5e-9a61-2f4c8e7d9b10", Name: "dog"},
		{ID: "5d2a9e47-1c6b-4b8a-8f3e-7a9c0d1e2f30", Name: "cat"},
	}
}

// SeedSpecies implements storage.SpeciesSeeder.
func (s *Store) SeedSpecies(_ context.Context, species ...models.Species) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, sp := range species {
		if _, ok := s.species[sp.ID]; ok {
			continue
		}
		s.species[sp.ID] = sp
		added++
	}
	return added, nil
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

// UpsertUser implements storage.Users.
func (s *Store) UpsertUser(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	if prev, ok := s.users[u.ID]; ok {
		u.CreatedAt = prev.CreatedAt
	} else {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.users[u.ID] = u
	return nil
}

// GetUser implements storage.Users.
func (s *Store) GetUser(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

// GetUsers implements storage.Users.
func (s *Store) GetUsers(_ context.Context, ids []int64) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// ListSpecies implements storage.Species.
func (s *Store) ListSpecies(_ context.Context) ([]models.Species, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Species, 0, len(s.species))
	for _, sp := range s.species {
		out = append(out, sp)
	}
	slices.SortFunc(out, func(a, b models.Species) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// GetSpecies implements storage.Species.
func (s *Store) GetSpecies(_ context.Context, id string) (models.Species, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.species[id]
	if !ok {
		return models.Species{}, storage.ErrNotFound
	}
	return sp, nil
}

func clonePet(p models.Pet) models.Pet {
	p.Owners = slices.Clone(p.Owners)
	p.OtherNames = slices.Clone(p.OtherNames)
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		p.UpdatedAt = &t
	}
	return p
}

// InsertPet implements storage.Pets.
func (s *Store) InsertPet(_ context.Context, p models.Pet) (models.Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.clock()
	}
	p = clonePet(p)
	s.pets[p.ID] = p
	return clonePet(p), nil
}

// GetPet implements storage.Pets.
func (s *Store) GetPet(_ context.Context, id string) (models.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pets[id]
	if !ok {
		return models.Pet{}, storage.ErrNotFound
	}
	return clonePet(p), nil
}

func sortPets(pets []models.Pet) {
	slices.SortFunc(pets, func(a, b models.Pet) int {
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// ListPetsByOwner implements storage.Pets.
func (s *Store) ListPetsByOwner(_ context.Context, userID int64, primaryOnly bool) ([]models.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Pet
	for _, p := range s.pets {
		if primaryOnly && !p.IsPrimaryOwner(userID) {
			continue
		}
		if !primaryOnly && !p.IsOwner(userID) {
			continue
		}
		out = append(out, clonePet(p))
	}
	sortPets(out)
	return out, nil
}

// ListPetsByIDs implements storage.Pets.
func (s *Store) ListPetsByIDs(_ context.Context, ids []string) ([]models.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Pet, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.pets[id]; ok {
			out = append(out, clonePet(p))
		}
	}
	sortPets(out)
	return out, nil
}

// UpdatePet implements storage.Pets.
func (s *Store) UpdatePet(_ context.Context, id string, patch storage.PetPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pets[id]
	if !ok {
		return storage.ErrNotAcknowledged
	}
	patch.Apply(&p)
	now := s.clock()
	p.UpdatedAt = &now
	s.pets[id] = p
	return nil
}

// SetPetOwners implements storage.Pets.
func (s *Store) SetPetOwners(_ context.Context, id string, owners []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pets[id]
	if !ok {
		return storage.ErrNotAcknowledged
	}
	p.Owners = slices.Clone(owners)
	now := s.clock()
	p.UpdatedAt = &now
	s.pets[id] = p
	return nil
}

// DeletePet implements storage.Pets.
func (s *Store) DeletePet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pets[id]; !ok {
		return storage.ErrNotAcknowledged
	}
	delete(s.pets, id)
	return nil
}

// CountPets implements storage.Pets.
func (s *Store) CountPets(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pets), nil
}

func cloneReport(r models.Report) models.Report {
	if r.UpdatedAt != nil {
		t := *r.UpdatedAt
		r.UpdatedAt = &t
	}
	return r
}

func sortReports(reports []models.Report) {
	slices.SortFunc(reports, func(a, b models.Report) int {
		return b.LastActivity().Compare(a.LastActivity())
	})
}

// InsertReport implements storage.Reports. It does not enforce the
// one-active-report rule; callers check first.
func (s *Store) InsertReport(_ context.Context, r models.Report) (models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock()
	}
	s.reports[r.ID] = cloneReport(r)
	return cloneReport(r), nil
}

// GetReport implements storage.Reports.
func (s *Store) GetReport(_ context.Context, id string) (models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return models.Report{}, storage.ErrNotFound
	}
	return cloneReport(r), nil
}

// CountActiveReports implements storage.Reports.
func (s *Store) CountActiveReports(_ context.Context, petID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.reports {
		if r.PetID == petID && r.IsActive {
			n++
		}
	}
	return n, nil
}

// ActiveReportForPet implements storage.Reports.
func (s *Store) ActiveReportForPet(_ context.Context, petID string) (models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found []models.Report
	for _, r := range s.reports {
		if r.PetID == petID && r.IsActive {
			found = append(found, cloneReport(r))
		}
	}
	if len(found) == 0 {
		return models.Report{}, storage.ErrNotFound
	}
	sortReports(found)
	return found[0], nil
}

// ListReportsForPets implements storage.Reports.
func (s *Store) ListReportsForPets(_ context.Context, petIDs []string, activeOnly bool) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Report
	for _, r := range s.reports {
		if !slices.Contains(petIDs, r.PetID) || (activeOnly && !r.IsActive) {
			continue
		}
		out = append(out, cloneReport(r))
	}
	sortReports(out)
	return out, nil
}

// FindActiveReportsNear implements storage.Reports.
func (s *Store) FindActiveReportsNear(_ context.Context, q storage.NearQuery) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Report
	for _, r := range s.reports {
		if !r.IsActive {
			continue
		}
		if slices.Contains(q.ExcludePetIDs, r.PetID) {
			continue
		}
		if !geo.Within(q.Center, r.LastSeen, q.RadiusKm) {
			continue
		}
		out = append(out, cloneReport(r))
	}
	sortReports(out)
	return out, nil
}

func (s *Store) mutateReport(id string, fn func(*models.Report)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return storage.ErrNotAcknowledged
	}
	fn(&r)
	now := s.clock()
	r.UpdatedAt = &now
	s.reports[id] = r
	return nil
}

// UpdateReportLocation implements storage.Reports.
func (s *Store) UpdateReportLocation(_ context.Context, id string, p geo.Point) error {
	return s.mutateReport(id, func(r *models.Report) { r.LastSeen = p })
}

// SetReportActive implements storage.Reports.
func (s *Store) SetReportActive(_ context.Context, id string, active bool) error {
	return s.mutateReport(id, func(r *models.Report) { r.IsActive = active })
}

// DeleteReport implements storage.Reports.
func (s *Store) DeleteReport(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return storage.ErrNotAcknowledged
	}
	delete(s.reports, id)
	return nil
}

// DeleteReportsForPet implements storage.Reports.
func (s *Store) DeleteReportsForPet(_ context.Context, petID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.reports {
		if r.PetID == petID {
			delete(s.reports, id)
			n++
		}
	}
	return n, nil
}

// CountReports implements storage.Reports.
func (s *Store) CountReports(_ context.Context, activeOnly bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !activeOnly {
		return len(s.reports), nil
	}
	n := 0
	for _, r := range s.reports {
		if r.IsActive {
			n++
		}
	}
	return n, nil
}
