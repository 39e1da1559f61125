package scenes_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/woofinder/bot/geo"
	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/scenes"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/bot/storage/memory"
	"github.com/m3rciful/woofinder/core/state"
	"github.com/m3rciful/woofinder/core/wizard"
	"github.com/m3rciful/woofinder/core/wizard/wizardtest"
)

var nearby = geo.Point{Lat: tallinn.Lat + 0.002, Lon: tallinn.Lon}

func TestLostReportCreation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	pet := h.pet("Rex", 1)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.LostReportCreation)
	h.send(conv.Press(pet.ID))
	h.send(conv.Text("somewhere"))
	assert.Equal(t, warned(scenes.MsgLocation), conv.Out.LastText())

	h.send(location(conv, tallinn))
	replies := conv.Out.Replies()
	require.GreaterOrEqual(t, len(replies), 2)
	assert.Equal(t, &wizard.Point{Lat: tallinn.Lat, Lon: tallinn.Lon}, replies[len(replies)-2].Location)

	h.send(conv.Text("yes"))
	texts := conv.Out.Texts()
	assert.Equal(t, []string{scenes.MsgReportSaved, scenes.MsgReportNotify}, texts[len(texts)-2:])

	report, err := h.store.ActiveReportForPet(ctx, pet.ID)
	require.NoError(t, err)
	assert.Equal(t, tallinn, report.LastSeen)
	assert.Equal(t, now, report.CreatedAt)
}

func TestLostReportRefusesSecondActiveReport(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	pet := h.pet("Rex", 1)
	h.report(pet.ID, tallinn, true)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.LostReportCreation)
	h.send(conv.Press(pet.ID))
	assert.Equal(t, warned(scenes.MsgActiveReport), conv.Out.LastText())
	assert.Equal(t, wizard.FormatHTML, conv.Out.Last().Format)

	n, err := h.store.CountActiveReports(ctx, pet.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLostReportRechecksBeforeInsert(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	pet := h.pet("Rex", 1, 2)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.LostReportCreation)
	h.send(conv.Press(pet.ID))
	h.send(location(conv, tallinn))
	h.report(pet.ID, nearby, true)
	h.send(conv.Text("yes"))
	assert.Equal(t, warned(scenes.MsgActiveReport), conv.Out.LastText())

	n, err := h.store.CountActiveReports(ctx, pet.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// gatedStore holds every armed CountActiveReports caller until all of them
// have read the count.
type gatedStore struct {
	*memory.Store
	armed   atomic.Bool
	arrived sync.WaitGroup
}

func (g *gatedStore) CountActiveReports(ctx context.Context, petID string) (int, error) {
	n, err := g.Store.CountActiveReports(ctx, petID)
	if g.armed.Load() {
		g.arrived.Done()
		g.arrived.Wait()
	}
	return n, err
}

func TestLostReportConcurrentConfirmsCanDuplicate(t *testing.T) {
	ctx := context.Background()
	clock := func() time.Time { return now }
	store := &gatedStore{Store: memory.New(memory.WithSpecies(memory.DefaultSpecies()...), memory.WithClock(clock))}
	eng := wizard.NewEngine(state.NewMemoryStore())
	require.NoError(t, eng.Register(scenes.All(scenes.Deps{Store: store, Now: clock})...))

	pet, err := store.InsertPet(ctx, models.Pet{Owners: []int64{1, 2}, Name: "Rex", SpeciesID: dogID})
	require.NoError(t, err)

	owner := wizardtest.NewConversation(1, "Ann")
	coOwner := wizardtest.NewConversation(2, "Ben")
	for _, conv := range []*wizardtest.Conversation{owner, coOwner} {
		require.NoError(t, eng.Enter(ctx, conv.Request(wizard.Enter{}), scenes.LostReportCreation, nil))
		require.NoError(t, eng.Handle(ctx, conv.Press(pet.ID)))
		require.NoError(t, eng.Handle(ctx, location(conv, tallinn)))
	}

	store.arrived.Add(2)
	store.armed.Store(true)
	var wg sync.WaitGroup
	for _, conv := range []*wizardtest.Conversation{owner, coOwner} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, eng.Handle(ctx, conv.Text("yes")))
		}()
	}
	wg.Wait()

	assert.Equal(t, scenes.MsgReportNotify, owner.Out.LastText())
	assert.Equal(t, scenes.MsgReportNotify, coOwner.Out.LastText())
	n, err := store.Store.CountActiveReports(ctx, pet.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLostReportBackRelistsPets(t *testing.T) {
	h := newHarness(t)
	pet := h.pet("Rex", 1)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.LostReportCreation)
	h.send(conv.Press(pet.ID))
	h.send(conv.Text("back"))
	last := conv.Out.Last()
	assert.Contains(t, last.Text, "select the lost one")
	require.Len(t, last.Buttons, 1)
	assert.Equal(t, "🐶 Rex", last.Buttons[0][0].Label)
	step, _ := h.step(conv)
	assert.Equal(t, 1, step)
}

func TestLostReportWithoutPets(t *testing.T) {
	h := newHarness(t)
	conv := wizardtest.NewConversation(1, "Ann")
	h.enter(conv, scenes.LostReportCreation)
	assert.Contains(t, conv.Out.LastText(), "<b>/pets</b>")
	_, active := h.step(conv)
	assert.False(t, active)
}

func TestMyReportsMarkFound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	pet := h.pet("Rex", 2, 1)
	report := h.report(pet.ID, tallinn, true)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.MyReports)
	last := conv.Out.Last()
	require.Len(t, last.Buttons, 1)
	assert.Equal(t, report.ID, last.Buttons[0][0].Data)
	assert.Equal(t, "🐶 Rex (now)", last.Buttons[0][0].Label)

	h.send(conv.Press(report.ID))
	assert.Len(t, conv.Out.Last().Buttons, 3)
	h.send(conv.Press("mark_found"))
	assert.Equal(t, scenes.MsgReportFound, conv.Out.LastText())

	got, err := h.store.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.UpdatedAt)
}

func TestMyReportsClosedReportCannotBeMarkedFound(t *testing.T) {
	h := newHarness(t)
	pet := h.pet("Rex", 1)
	report := h.report(pet.ID, tallinn, false)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.MyReports)
	assert.Contains(t, conv.Out.Last().Buttons[0][0].Label, "✔️")
	h.send(conv.Press(report.ID))
	assert.Len(t, conv.Out.Last().Buttons, 2)
	h.send(conv.Press("mark_found"))
	assert.Equal(t, warned(scenes.MsgChooseOption), conv.Out.LastText())
}

func TestMyReportsUpdateLocation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	pet := h.pet("Rex", 1)
	report := h.report(pet.ID, tallinn, true)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.MyReports)
	h.send(conv.Press(report.ID))
	h.send(conv.Press("update_coords"))
	h.send(conv.Text("near the park"))
	assert.Equal(t, warned(scenes.MsgLocation), conv.Out.LastText())
	h.send(location(conv, nearby))
	assert.Equal(t, scenes.MsgLocationSaved, conv.Out.LastText())

	got, err := h.store.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, nearby, got.LastSeen)
}

func TestMyReportsDelete(t *testing.T) {
	h := newHarness(t)
	pet := h.pet("Rex", 1)
	report := h.report(pet.ID, tallinn, true)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.MyReports)
	h.send(conv.Press(report.ID))
	h.send(conv.Press("delete_report"))
	assert.Equal(t, scenes.MsgReportRemoved, conv.Out.LastText())

	_, err := h.store.GetReport(context.Background(), report.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMyReportsRefusesForeignReport(t *testing.T) {
	h := newHarness(t)
	mine := h.pet("Rex", 1)
	h.report(mine.ID, tallinn, true)
	other := h.pet("Bella", 2)
	foreign := h.report(other.ID, tallinn, true)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.MyReports)
	h.send(conv.Press(foreign.ID))
	assert.Equal(t, warned("The report was not found. Please try again later."), conv.Out.LastText())
}

func TestOthersReportsNotifiesOwners(t *testing.T) {
	h := newHarness(t)
	pet := h.pet("Bella", 2, 3)
	h.report(pet.ID, tallinn, true)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.OthersReports)
	h.send(location(conv, nearby))
	last := conv.Out.Last()
	require.Len(t, last.Buttons, 1)
	assert.Equal(t, pet.ID, last.Buttons[0][0].Data)
	assert.Equal(t, "🐶 Bella (now, 223 m)", last.Buttons[0][0].Label)

	h.send(conv.Press(pet.ID))
	replies := conv.Out.Replies()
	var photo string
	for _, r := range replies {
		if r.PhotoRef != "" {
			photo = r.PhotoRef
		}
	}
	assert.Equal(t, "pic-Bella", photo)
	assert.True(t, conv.Out.Contains("Report created at"))

	h.send(conv.Text("maybe"))
	assert.Equal(t, warned(scenes.MsgListedOption), conv.Out.LastText())
	h.send(conv.Press("found_it"))
	assert.True(t, conv.Out.Last().RequestContact)

	h.send(conv.Text("+372 555"))
	assert.Equal(t, warned(scenes.MsgContactMissing), conv.Out.LastText())
	h.send(conv.Request(wizard.Contact{Phone: "+372 5555 1234", FirstName: "Ann", LastName: "Smith", UserID: 1}))

	last = conv.Out.Last()
	assert.Equal(t, scenes.MsgContactShared, last.Text)
	assert.True(t, last.RemoveKeyboard)

	notes := conv.Out.Notifications()
	require.Len(t, notes, 2)
	for i, owner := range []int64{2, 3} {
		assert.Equal(t, owner, notes[i].UserID)
		assert.Equal(t,
			"🔔🐾 <b>Heads up!</b> Ann Smith has <b>found</b> your pet (<b>Bella</b>)\n📞 Their phone number is: <b>+372 5555 1234</b>",
			notes[i].Message.Text)
	}
}

func TestOthersReportsOutsideRadius(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	pet := h.pet("Bella", 2)
	report := h.report(pet.ID, tallinn, true)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.OthersReports)
	h.send(location(conv, geo.Point{Lat: tallinn.Lat + 0.05, Lon: tallinn.Lon}))
	assert.Equal(t, scenes.MsgNoNearReports, conv.Out.LastText())
	_, active := h.step(conv)
	assert.False(t, active)
	assert.Empty(t, conv.Out.Notifications())

	got, err := h.store.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report, got)
}

func TestOthersReportsSkipsOwnPets(t *testing.T) {
	h := newHarness(t)
	pet := h.pet("Rex", 1)
	h.report(pet.ID, tallinn, true)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.OthersReports)
	h.send(location(conv, tallinn))
	assert.Equal(t, scenes.MsgNoNearReports, conv.Out.LastText())
}

func TestOthersReportsExitFromOptions(t *testing.T) {
	h := newHarness(t)
	pet := h.pet("Bella", 2)
	h.report(pet.ID, tallinn, true)
	conv := wizardtest.NewConversation(1, "Ann")

	h.enter(conv, scenes.OthersReports)
	h.send(location(conv, tallinn))
	h.send(conv.Press(pet.ID))
	h.send(conv.Press(wizard.ExitToken))
	assert.Equal(t, scenes.MsgCancelled, conv.Out.LastText())
	assert.Empty(t, conv.Out.Notifications())
}
