package validate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/core/wizard/wizardtest"
)

func TestName(t *testing.T) {
	assert.Equal(t, Result[string]{Valid: true, Value: "Rex"}, Name("  Rex "))
	assert.Equal(t, MsgNameEmpty, Name("   ").Message)
	assert.True(t, Name(strings.Repeat("ñ", 20)).Valid, "length counts runes")
	assert.Equal(t, "The name cannot be longer than 20 characters.", Name(strings.Repeat("a", 21)).Message)
}

func TestBirthDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	r := BirthDate("2019-03-07", now)
	require.True(t, r.Valid)
	assert.Equal(t, time.Date(2019, 3, 7, 0, 0, 0, 0, time.UTC), r.Value)

	assert.True(t, BirthDate("2000-01-01", now).Valid, "lower bound is inclusive")
	assert.Equal(t, MsgBirthDateTooEarly, BirthDate("1999-12-31", now).Message)
	assert.Equal(t, MsgBirthDateFuture, BirthDate("2024-06-02", now).Message)
	assert.Equal(t, MsgDateFormat, BirthDate("last spring", now).Message)
}

func TestSize(t *testing.T) {
	assert.Equal(t, models.SizeGiant, Size(" GIANT ").Value)
	assert.Equal(t, MsgSize, Size("tiny").Message)
}

func TestWeight(t *testing.T) {
	assert.Equal(t, 12.5, Weight("12,5").Value)
	assert.Equal(t, 3.0, Weight(" 3 ").Value)
	assert.Equal(t, MsgWeightNaN, Weight("heavy").Message)
	assert.Equal(t, MsgWeightNaN, Weight("NaN").Message)
	assert.Equal(t, MsgWeightNaN, Weight("Inf").Message)
	assert.Equal(t, MsgWeightNotPositive, Weight("0").Message)
	assert.Equal(t, MsgWeightNotPositive, Weight("-2").Message)
}

func TestOtherNames(t *testing.T) {
	assert.Equal(t, []string{}, OtherNames("").Value)
	assert.Equal(t, []string{}, OtherNames("No").Value)
	assert.Equal(t, []string{"a", "b"}, OtherNames(" a   b ").Value)
	assert.Len(t, OtherNames("a b c d e f g").Value, MaxOtherNames)
}

func TestDescription(t *testing.T) {
	assert.True(t, Description("Brown with a white patch").Valid)
	assert.Equal(t, MsgDescriptionEmpty, Description(" ").Message)
	assert.Equal(t, MsgDescriptionTooLong, Description(strings.Repeat("x", 501)).Message)
}

type speciesMap map[string]models.Species

func (m speciesMap) GetSpecies(_ context.Context, id string) (models.Species, error) {
	if id == "broken" {
		return models.Species{}, errors.New("db down")
	}
	sp, ok := m[id]
	if !ok {
		return models.Species{}, storage.ErrNotFound
	}
	return sp, nil
}

func TestSpecies(t *testing.T) {
	ctx := context.Background()
	dog := models.Species{ID: "6f1c7a52-2a4c-4f7e-9d3a-1c2b3d4e5f60", Name: "dog"}
	lookup := speciesMap{dog.ID: dog}

	r, err := Species(ctx, lookup, dog.ID)
	require.NoError(t, err)
	assert.Equal(t, dog, r.Value)

	r, err = Species(ctx, lookup, "not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, MsgOption, r.Message)

	r, err = Species(ctx, lookup, "00000000-0000-0000-0000-000000000001")
	require.NoError(t, err)
	assert.Equal(t, MsgSpeciesUndefined, r.Message)
}

func TestPicture(t *testing.T) {
	ctx := context.Background()
	files := wizardtest.Files{"AgAD-photo": true}
	assert.True(t, Picture(ctx, files, "AgAD-photo").Valid)
	assert.Equal(t, MsgFile, Picture(ctx, files, "missing").Message)
	assert.Equal(t, MsgFile, Picture(ctx, nil, "AgAD-photo").Message)
}

func TestOwnerIDs(t *testing.T) {
	accepted, rejected := OwnerIDs("123 abc 10 456 123 -5", []int64{10})
	assert.Equal(t, []int64{123, 456}, accepted)
	require.Len(t, rejected, 4)
	assert.Equal(t, Rejection{Token: "abc", Reason: MsgOwnerNotID}, rejected[0])
	assert.Equal(t, Rejection{Token: "10", Reason: MsgOwnerAlreadyLinked}, rejected[1])
	assert.Equal(t, Rejection{Token: "123", Reason: MsgOwnerAlreadyLinked}, rejected[2])
	assert.Equal(t, Rejection{Token: "-5", Reason: MsgOwnerNotID}, rejected[3])
}
