package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/woofinder/bot/geo"
	"github.com/m3rciful/woofinder/bot/storage"
)

// Malformed ids are answered before any query, so a store without a pool
// must still behave.
func TestMalformedIDsNeverReachTheDatabase(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	_, err := s.GetPet(ctx, "rex")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetSpecies(ctx, "dog")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetReport(ctx, "42")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.ActiveReportForPet(ctx, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	name := "Rex"
	assert.ErrorIs(t, s.UpdatePet(ctx, "rex", storage.PetPatch{Name: &name}), storage.ErrNotAcknowledged)
	assert.ErrorIs(t, s.SetPetOwners(ctx, "rex", []int64{1}), storage.ErrNotAcknowledged)
	assert.ErrorIs(t, s.DeletePet(ctx, "rex"), storage.ErrNotAcknowledged)
	assert.ErrorIs(t, s.UpdateReportLocation(ctx, "r", geo.Point{}), storage.ErrNotAcknowledged)
	assert.ErrorIs(t, s.SetReportActive(ctx, "r", false), storage.ErrNotAcknowledged)
	assert.ErrorIs(t, s.DeleteReport(ctx, "r"), storage.ErrNotAcknowledged)

	n, err := s.CountActiveReports(ctx, "rex")
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.DeleteReportsForPet(ctx, "rex")
	require.NoError(t, err)
	assert.Zero(t, n)

	pets, err := s.ListPetsByIDs(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Empty(t, pets)
	reports, err := s.ListReportsForPets(ctx, []string{"a"}, true)
	require.NoError(t, err)
	assert.Empty(t, reports)
	users, err := s.GetUsers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestKeepValid(t *testing.T) {
	id := "0b7e5c1a-8d3f-4f5e-9a61-2f4c8e7d9b10"
	assert.Equal(t, []string{id}, keepValid([]string{"rex", id, ""}))
	assert.Empty(t, keepValid(nil))
}
