// Package storage defines the persistence gateway used by scenes and handlers.
// Operations are single-document; there are no cross-document transactions.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/m3rciful/woofinder/bot/geo"
	"github.com/m3rciful/woofinder/bot/models"
)

var (
	// ErrNotFound is returned when a looked-up document does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrNotAcknowledged is returned when a write matched nothing.
	ErrNotAcknowledged = errors.New("storage: write not acknowledged")
)

// Users persists Telegram users.
type Users interface {
	// UpsertUser inserts or refreshes u. CreatedAt is set only on insert.
	UpsertUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, id int64) (models.User, error)
	// GetUsers returns the users that exist among ids, in no particular order.
	GetUsers(ctx context.Context, ids []int64) ([]models.User, error)
}

// Species reads the species catalogue.
type Species interface {
	ListSpecies(ctx context.Context) ([]models.Species, error)
	GetSpecies(ctx context.Context, id string) (models.Species, error)
}

// SpeciesSeeder adds catalogue entries at startup. Both backends implement it.
type SpeciesSeeder interface {
	// SeedSpecies inserts the species whose ids are missing and returns how many were added.
	SeedSpecies(ctx context.Context, species ...models.Species) (int, error)
}

// PetPatch updates only the non-nil fields.
type PetPatch struct {
	Name            *string
	OtherNames      *[]string
	BirthDate       *time.Time
	SpeciesID       *string
	Size            *models.Size
	Weight          *float64
	Description     *string
	PictureRemoteID *string
}

// Empty reports whether the patch changes nothing.
func (p PetPatch) Empty() bool {
	return p.Name == nil && p.OtherNames == nil && p.BirthDate == nil && p.SpeciesID == nil &&
		p.Size == nil && p.Weight == nil && p.Description == nil && p.PictureRemoteID == nil
}

// Apply writes the patch onto pet.
func (p PetPatch) Apply(pet *models.Pet) {
	if p.Name != nil {
		pet.Name = *p.Name
	}
	if p.OtherNames != nil {
		pet.OtherNames = append([]string(nil), (*p.OtherNames)...)
	}
	if p.BirthDate != nil {
		pet.BirthDate = *p.BirthDate
	}
	if p.SpeciesID != nil {
		pet.SpeciesID = *p.SpeciesID
	}
	if p.Size != nil {
		pet.Size = *p.Size
	}
	if p.Weight != nil {
		pet.Weight = *p.Weight
	}
	if p.Description != nil {
		pet.Description = *p.Description
	}
	if p.PictureRemoteID != nil {
		pet.PictureRemoteID = *p.PictureRemoteID
	}
}

// Pets persists pets.
type Pets interface {
	// InsertPet stores p, assigning ID and CreatedAt when empty, and returns the stored pet.
	InsertPet(ctx context.Context, p models.Pet) (models.Pet, error)
	GetPet(ctx context.Context, id string) (models.Pet, error)
	// ListPetsByOwner returns the user's pets by name. With primaryOnly only
	// pets whose first owner is userID are returned.
	ListPetsByOwner(ctx context.Context, userID int64, primaryOnly bool) ([]models.Pet, error)
	ListPetsByIDs(ctx context.Context, ids []string) ([]models.Pet, error)
	UpdatePet(ctx context.Context, id string, patch PetPatch) error
	SetPetOwners(ctx context.Context, id string, owners []int64) error
	DeletePet(ctx context.Context, id string) error
	CountPets(ctx context.Context) (int, error)
}

// NearQuery selects active reports inside a spherical cap.
type NearQuery struct {
	Center   geo.Point
	RadiusKm float64
	// ExcludePetIDs drops reports about these pets.
	ExcludePetIDs []string
}

// Reports persists lost-pet reports.
type Reports interface {
	InsertReport(ctx context.Context, r models.Report) (models.Report, error)
	GetReport(ctx context.Context, id string) (models.Report, error)
	CountActiveReports(ctx context.Context, petID string) (int, error)
	ActiveReportForPet(ctx context.Context, petID string) (models.Report, error)
	ListReportsForPets(ctx context.Context, petIDs []string, activeOnly bool) ([]models.Report, error)
	FindActiveReportsNear(ctx context.Context, q NearQuery) ([]models.Report, error)
	UpdateReportLocation(ctx context.Context, id string, p geo.Point) error
	SetReportActive(ctx context.Context, id string, active bool) error
	DeleteReport(ctx context.Context, id string) error
	// DeleteReportsForPet removes every report of the pet and returns how many were removed.
	DeleteReportsForPet(ctx context.Context, petID string) (int, error)
	CountReports(ctx context.Context, activeOnly bool) (int, error)
}

// Store is the full gateway.
type Store interface {
	Users
	Species
	Pets
	Reports
}
