// Package validate checks raw user input for the pet and report scenes.
// Invalid input is a Result with Valid=false and a user-facing Message; a
// returned error always means an infrastructure failure.
package validate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/core/telegram/helpers"
	"github.com/m3rciful/woofinder/core/wizard"
)

const (
	NameMaxLen        = 20
	MaxOtherNames     = 5
	DescriptionMaxLen = 500
)

// MinBirthDate is the earliest accepted birth date.
var MinBirthDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// User-facing messages.
const (
	MsgNameEmpty          = "The name cannot be empty."
	MsgDateFormat         = "The date format is not valid."
	MsgBirthDateTooEarly  = "Invalid birthdate. The date must be greater than 2000-01-01."
	MsgBirthDateFuture    = "Invalid birthdate. The date must be less than the current date."
	MsgSize               = "The provided size is not valid."
	MsgWeightNaN          = "The weight must be a number."
	MsgWeightNotPositive  = "The weight must be a positive number."
	MsgOption             = "The selected option is not valid."
	MsgSpeciesUndefined   = "The species is not defined."
	MsgFile               = "The file is not valid."
	MsgDescriptionEmpty   = "The description cannot be empty."
	MsgOwnerNotID         = "the value is not a valid ID."
	MsgOwnerAlreadyLinked = "the owner ID already exists."
)

// MsgNameTooLong is returned for names over NameMaxLen runes.
var MsgNameTooLong = fmt.Sprintf("The name cannot be longer than %d characters.", NameMaxLen)

// MsgDescriptionTooLong is returned for descriptions over DescriptionMaxLen runes.
var MsgDescriptionTooLong = fmt.Sprintf("The description cannot be longer than %d characters.", DescriptionMaxLen)

// Result is the outcome of validating one value.
type Result[T any] struct {
	Valid   bool
	Value   T
	Message string
}

func ok[T any](v T) Result[T] {
	return Result[T]{Valid: true, Value: v}
}

func invalid[T any](msg string) Result[T] {
	return Result[T]{Message: msg}
}

// Name accepts 1 to NameMaxLen runes after trimming.
func Name(s string) Result[string] {
	s = strings.TrimSpace(s)
	switch n := utf8.RuneCountInString(s); {
	case n == 0:
		return invalid[string](MsgNameEmpty)
	case n > NameMaxLen:
		return invalid[string](MsgNameTooLong)
	}
	return ok(s)
}

// BirthDate parses a calendar date in UTC between MinBirthDate and now.
func BirthDate(s string, now time.Time) Result[time.Time] {
	d, parsed := helpers.ParseFlexibleDate(s, time.UTC)
	if !parsed {
		return invalid[time.Time](MsgDateFormat)
	}
	if d.Before(MinBirthDate) {
		return invalid[time.Time](MsgBirthDateTooEarly)
	}
	if d.After(now) {
		return invalid[time.Time](MsgBirthDateFuture)
	}
	return ok(d)
}

// Size accepts one of the known sizes, case-insensitively.
func Size(s string) Result[models.Size] {
	size := models.Size(strings.ToLower(strings.TrimSpace(s)))
	if !size.Valid() {
		return invalid[models.Size](MsgSize)
	}
	return ok(size)
}

// Weight accepts a finite positive number. A comma works as decimal separator.
func Weight(s string) Result[float64] {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return invalid[float64](MsgWeightNaN)
	}
	if w <= 0 {
		return invalid[float64](MsgWeightNotPositive)
	}
	return ok(w)
}

// OtherNames splits on whitespace and keeps the first MaxOtherNames names.
// An empty answer or "no" means no other names.
func OtherNames(s string) Result[[]string] {
	fields := strings.Fields(s)
	if len(fields) == 0 || (len(fields) == 1 && strings.EqualFold(fields[0], "no")) {
		return ok([]string{})
	}
	if len(fields) > MaxOtherNames {
		fields = fields[:MaxOtherNames]
	}
	return ok(fields)
}

// Description accepts 1 to DescriptionMaxLen runes after trimming.
func Description(s string) Result[string] {
	s = strings.TrimSpace(s)
	switch n := utf8.RuneCountInString(s); {
	case n == 0:
		return invalid[string](MsgDescriptionEmpty)
	case n > DescriptionMaxLen:
		return invalid[string](MsgDescriptionTooLong)
	}
	return ok(s)
}

// SpeciesLookup resolves a species id.
type SpeciesLookup interface {
	GetSpecies(ctx context.Context, id string) (models.Species, error)
}

// Species checks id syntax and that the species exists.
func Species(ctx context.Context, lookup SpeciesLookup, id string) (Result[models.Species], error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return invalid[models.Species](MsgOption), nil
	}
	sp, err := lookup.GetSpecies(ctx, parsed.String())
	if errors.Is(err, storage.ErrNotFound) {
		return invalid[models.Species](MsgSpeciesUndefined), nil
	}
	if err != nil {
		return Result[models.Species]{}, fmt.Errorf("lookup species %s: %w", id, err)
	}
	return ok(sp), nil
}

// Picture checks that the platform can resolve ref. Any resolution failure is invalid input.
func Picture(ctx context.Context, files wizard.FileResolver, ref string) Result[string] {
	ref = strings.TrimSpace(ref)
	if ref == "" || files == nil {
		return invalid[string](MsgFile)
	}
	if err := files.ResolveFile(ctx, ref); err != nil {
		return invalid[string](MsgFile)
	}
	return ok(ref)
}

// Rejection explains why one owner id token was refused.
type Rejection struct {
	Token  string
	Reason string
}

// OwnerIDs parses whitespace-separated user ids. Tokens that are not positive
// integers, or that are already owners (or repeated), are rejected.
func OwnerIDs(s string, current []int64) (accepted []int64, rejected []Rejection) {
	for _, tok := range strings.Fields(s) {
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil || id <= 0 {
			rejected = append(rejected, Rejection{Token: tok, Reason: MsgOwnerNotID})
			continue
		}
		if slices.Contains(current, id) || slices.Contains(accepted, id) {
			rejected = append(rejected, Rejection{Token: tok, Reason: MsgOwnerAlreadyLinked})
			continue
		}
		accepted = append(accepted, id)
	}
	return accepted, rejected
}
