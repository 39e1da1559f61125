package scenes_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/scenes"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/bot/validate"
	"github.com/m3rciful/woofinder/core/state"
	"github.com/m3rciful/woofinder/core/wizard/wizardtest"
)

func TestUpdateChangesOneField(t *testing.T) {
	h := newHarness(t)
	pet := h.pet("Rex", 2, 1)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.Update)
	h.send(conv.Press(pet.ID))
	assert.Equal(t, "What would you like to update?", conv.Out.LastText())
	h.send(conv.Press(string(models.FieldWeight)))
	assert.Equal(t, "Now enter the estimated weight (kg)", conv.Out.LastText())

	h.send(conv.Text("heavy"))
	assert.Equal(t, warned("The input is not valid ("+validate.MsgWeightNaN+"). Please try again."), conv.Out.LastText())
	h.send(conv.Text("20.5"))
	assert.Equal(t, scenes.MsgPetUpdated, conv.Out.LastText())

	got, err := h.store.GetPet(context.Background(), pet.ID)
	require.NoError(t, err)
	assert.InDelta(t, 20.5, got.Weight, 1e-9)
	assert.Equal(t, pet.Name, got.Name)
	assert.NotNil(t, got.UpdatedAt)
}

func TestUpdateBackReturnsToFieldMenu(t *testing.T) {
	h := newHarness(t)
	pet := h.pet("Rex", 1)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.Update)
	h.send(conv.Press(pet.ID))
	h.send(conv.Press(string(models.FieldName)))
	h.send(conv.Text("back"))
	assert.Equal(t, "What would you like to update?", conv.Out.LastText())

	h.send(conv.Press(string(models.FieldName)))
	h.send(conv.Text("Max"))
	got, err := h.store.GetPet(context.Background(), pet.ID)
	require.NoError(t, err)
	assert.Equal(t, "Max", got.Name)
}

func TestUpdateWithoutFieldRestarts(t *testing.T) {
	h := newHarness(t)
	pet := h.pet("Rex", 1)
	conv := wizardtest.NewConversation(1, "Ann")

	form, err := json.Marshal(map[string]any{"pet_id": pet.ID, "pet": map[string]any{}})
	require.NoError(t, err)
	require.NoError(t, h.sessions.Put(context.Background(), conv.Key(), state.Session{
		SceneID: string(scenes.Update),
		Step:    3,
		Form:    form,
	}))

	h.send(conv.Text("20"))
	assert.Equal(t, []string{warned(scenes.MsgUpdateRestart), "Select the pet that you want to update."}, conv.Out.Texts())
	step, active := h.step(conv)
	require.True(t, active)
	assert.Equal(t, 1, step)

	got, err := h.store.GetPet(context.Background(), pet.ID)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, got.Weight, 1e-9)
}

func TestUpdateRefusesForeignPet(t *testing.T) {
	h := newHarness(t)
	h.pet("Mine", 1)
	foreign := h.pet("Other", 2)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.Update)
	h.send(conv.Press(foreign.ID))
	assert.Equal(t, warned(scenes.MsgPetNotFound), conv.Out.LastText())
	_, active := h.step(conv)
	assert.False(t, active)
}

func TestUpdateWithoutPets(t *testing.T) {
	h := newHarness(t)
	conv := wizardtest.NewConversation(1, "Ann")
	h.enter(conv, scenes.Update)
	assert.Equal(t, []string{warned(scenes.MsgNoPets)}, conv.Out.Texts())
}

func TestRemovalNeedsExactName(t *testing.T) {
	h := newHarness(t)
	pet := h.pet("Rex", 1)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.Removal)
	h.send(conv.Press(pet.ID))
	assert.Contains(t, conv.Out.LastText(), "<b>Rex</b>")
	h.send(conv.Text("rex"))
	assert.Equal(t, scenes.MsgCancelled, conv.Out.LastText())

	_, err := h.store.GetPet(context.Background(), pet.ID)
	assert.NoError(t, err)
}

func TestRemovalCascadesAndNotifiesCoOwners(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	pet := h.pet("Rex", 1, 2, 3)
	h.report(pet.ID, tallinn, false)
	h.report(pet.ID, tallinn, true)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.Removal)
	h.send(conv.Press(pet.ID))
	h.send(conv.Text("Rex"))
	assert.Equal(t, scenes.MsgPetRemoved, conv.Out.LastText())

	_, err := h.store.GetPet(ctx, pet.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	reports, err := h.store.ListReportsForPets(ctx, []string{pet.ID}, false)
	require.NoError(t, err)
	assert.Empty(t, reports)

	notes := conv.Out.Notifications()
	require.Len(t, notes, 2)
	assert.Equal(t, int64(2), notes[0].UserID)
	assert.Equal(t, int64(3), notes[1].UserID)
	assert.Contains(t, notes[0].Message.Text, "<b>Rex</b>")
}

func TestRemovalListsOnlyPrimaryPets(t *testing.T) {
	h := newHarness(t)
	h.pet("Rex", 1, 2)
	conv := wizardtest.NewConversation(2, "Bob")

	h.enter(conv, scenes.Removal)
	assert.Equal(t, []string{warned(scenes.MsgNoPets)}, conv.Out.Texts())
}

func TestOwnerRegistrationLinksValidIDs(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.store.UpsertUser(ctx, models.User{ID: 2, Username: "bob"}))
	pet := h.pet("Rex", 1, 2)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.OwnerRegistration)
	h.send(conv.Press(pet.ID))
	assert.Contains(t, conv.Out.LastText(), "<b>@bob</b>")

	conv.Out.Reset()
	h.send(conv.Text("abc 2 3 3"))
	assert.Equal(t, []string{
		warned(`Could not add secondary owner <b>"abc"</b>, ` + validate.MsgOwnerNotID),
		warned(`Could not add secondary owner <b>"2"</b>, ` + validate.MsgOwnerAlreadyLinked),
		warned(`Could not add secondary owner <b>"3"</b>, ` + validate.MsgOwnerAlreadyLinked),
		scenes.MsgOwnersLinked,
	}, conv.Out.Texts())

	got, err := h.store.GetPet(ctx, pet.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, got.Owners)

	notes := conv.Out.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, int64(3), notes[0].UserID)
}

func TestOwnerRegistrationAllInvalid(t *testing.T) {
	h := newHarness(t)
	pet := h.pet("Rex", 1)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.OwnerRegistration)
	h.send(conv.Press(pet.ID))
	h.send(conv.Text("-4 1"))
	assert.Equal(t, warned(scenes.MsgOwnersInvalid), conv.Out.LastText())
	_, active := h.step(conv)
	assert.False(t, active)

	got, err := h.store.GetPet(context.Background(), pet.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got.Owners)
}
