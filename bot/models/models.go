// Package models holds the WooFinder domain entities.
package models

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/woofinder/bot/geo"
)

// User is a Telegram user who has talked to the bot.
type User struct {
	ID           int64
	ChatID       int64
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
	IsBot        bool
	IsPremium    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName prefers @username, then the full name, then the numeric id.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return "user " + strconv.FormatInt(u.ID, 10)
}

// Species is a kind of animal. Seeded by migration.
type Species struct {
	ID   string
	Name string
}

// Emoji is a pictogram for the species, or empty when none fits.
func (s Species) Emoji() string {
	switch strings.ToLower(s.Name) {
	case "dog":
		return "🐶"
	case "cat":
		return "🐱"
	}
	return ""
}

// Size is a coarse body size category.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
	SizeGiant  Size = "giant"
)

// Sizes lists every size in ascending order.
func Sizes() []Size {
	return []Size{SizeSmall, SizeMedium, SizeLarge, SizeGiant}
}

// Valid reports whether s is a known size.
func (s Size) Valid() bool {
	return slices.Contains(Sizes(), s)
}

// Pet is a registered animal. Owners[0] is the primary owner.
type Pet struct {
	ID              string
	Owners          []int64
	Name            string
	OtherNames      []string
	BirthDate       time.Time
	SpeciesID       string
	Size            Size
	Weight          float64
	Description     string
	PictureRemoteID string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// PrimaryOwner returns the first owner or zero.
func (p Pet) PrimaryOwner() int64 {
	if len(p.Owners) == 0 {
		return 0
	}
	return p.Owners[0]
}

// IsPrimaryOwner reports whether userID registered the pet.
func (p Pet) IsPrimaryOwner(userID int64) bool {
	return len(p.Owners) > 0 && p.Owners[0] == userID
}

// IsOwner reports whether userID is any of the owners.
func (p Pet) IsOwner(userID int64) bool {
	return slices.Contains(p.Owners, userID)
}

// SecondaryOwners returns every owner except the primary one.
func (p Pet) SecondaryOwners() []int64 {
	if len(p.Owners) <= 1 {
		return nil
	}
	return append([]int64(nil), p.Owners[1:]...)
}

// Report is a lost-pet report. At most one active report exists per pet.
type Report struct {
	ID        string
	PetID     string
	IsActive  bool
	LastSeen  geo.Point
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// LastActivity is the update time when set, otherwise the creation time.
func (r Report) LastActivity() time.Time {
	if r.UpdatedAt != nil {
		return *r.UpdatedAt
	}
	return r.CreatedAt
}

// PetField names an editable pet attribute.
type PetField string

const (
	FieldName        PetField = "name"
	FieldOtherNames  PetField = "otherNames"
	FieldBirthDate   PetField = "birthDate"
	FieldSpecies     PetField = "species"
	FieldSize        PetField = "size"
	FieldWeight      PetField = "weight"
	FieldDescription PetField = "description"
	FieldPicture     PetField = "picture"
)

// PetFields lists editable fields in menu order.
func PetFields() []PetField {
	return []PetField{
		FieldName, FieldOtherNames, FieldBirthDate, FieldSpecies,
		FieldSize, FieldWeight, FieldDescription, FieldPicture,
	}
}

// Valid reports whether f is editable.
func (f PetField) Valid() bool {
	return slices.Contains(PetFields(), f)
}

// Label is the button text for f.
func (f PetField) Label() string {
	switch f {
	case FieldName:
		return "Name"
	case FieldOtherNames:
		return "Other names"
	case FieldBirthDate:
		return "Birthdate"
	case FieldSpecies:
		return "Species"
	case FieldSize:
		return "Size"
	case FieldWeight:
		return "Weight"
	case FieldDescription:
		return "Description"
	case FieldPicture:
		return "Picture"
	}
	return string(f)
}
