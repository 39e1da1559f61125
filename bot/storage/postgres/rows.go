package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/m3rciful/woofinder/bot/geo"
	"github.com/m3rciful/woofinder/bot/models"
)

type userRow struct {
	ID           int64     `db:"id"`
	ChatID       int64     `db:"chat_id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Username     string    `db:"username"`
	LanguageCode string    `db:"language_code"`
	IsBot        bool      `db:"is_bot"`
	IsPremium    bool      `db:"is_premium"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) model() models.User {
	return models.User{
		ID:           r.ID,
		ChatID:       r.ChatID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Username:     r.Username,
		LanguageCode: r.LanguageCode,
		IsBot:        r.IsBot,
		IsPremium:    r.IsPremium,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type speciesRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

type petRow struct {
	ID              string         `db:"id"`
	Owners          pq.Int64Array  `db:"owners"`
	Name            string         `db:"name"`
	OtherNames      pq.StringArray `db:"other_names"`
	BirthDate       time.Time      `db:"birth_date"`
	SpeciesID       string         `db:"species_id"`
	Size            string         `db:"size"`
	Weight          float64        `db:"weight"`
	Description     string         `db:"description"`
	PictureRemoteID string         `db:"picture_remote_id"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       sql.NullTime   `db:"updated_at"`
}

func (r petRow) model() models.Pet {
	p := models.Pet{
		ID:              r.ID,
		Owners:          []int64(r.Owners),
		Name:            r.Name,
		OtherNames:      []string(r.OtherNames),
		BirthDate:       r.BirthDate,
		SpeciesID:       r.SpeciesID,
		Size:            models.Size(r.Size),
		Weight:          r.Weight,
		Description:     r.Description,
		PictureRemoteID: r.PictureRemoteID,
		CreatedAt:       r.CreatedAt,
	}
	if r.UpdatedAt.Valid {
		t := r.UpdatedAt.Time
		p.UpdatedAt = &t
	}
	return p
}

type reportRow struct {
	ID        string       `db:"id"`
	PetID     string       `db:"pet_id"`
	IsActive  bool         `db:"is_active"`
	Lat       float64      `db:"last_seen_lat"`
	Lon       float64      `db:"last_seen_lon"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

func (r reportRow) model() models.Report {
	rep := models.Report{
		ID:        r.ID,
		PetID:     r.PetID,
		IsActive:  r.IsActive,
		LastSeen:  geo.Point{Lat: r.Lat, Lon: r.Lon},
		CreatedAt: r.CreatedAt,
	}
	if r.UpdatedAt.Valid {
		t := r.UpdatedAt.Time
		rep.UpdatedAt = &t
	}
	return rep
}

const (
	userColumns   = `id, chat_id, first_name, last_name, username, language_code, is_bot, is_premium, created_at, updated_at`
	petColumns    = `id, owners, name, other_names, birth_date, species_id, size, weight, description, picture_remote_id, created_at, updated_at`
	reportColumns = `id, pet_id, is_active, last_seen_lat, last_seen_lon, created_at, updated_at`
)
