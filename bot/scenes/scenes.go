// Package scenes holds the WooFinder conversations: pet registration and
// maintenance plus lost-pet reports.
package scenes

import (
	"context"
	"time"

	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/core/wizard"
)

// Scene ids.
const (
	Registration       wizard.SceneID = "pet_registration"
	Update             wizard.SceneID = "pet_update"
	Removal            wizard.SceneID = "pet_removal"
	OwnerRegistration  wizard.SceneID = "pet_owner_registration"
	LostReportCreation wizard.SceneID = "lost_report_creation"
	MyReports          wizard.SceneID = "my_lost_reports"
	OthersReports      wizard.SceneID = "others_lost_reports"
)

// DefaultRadiusKm bounds the others' reports search.
const DefaultRadiusKm = 0.5

const (
	componentPets    = "service.pets"
	componentReports = "service.reports"
)

// Deps are the collaborators shared by every scene.
type Deps struct {
	Store    storage.Store
	RadiusKm float64
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) radius() float64 {
	if d.RadiusKm > 0 {
		return d.RadiusKm
	}
	return DefaultRadiusKm
}

// All builds every scene.
func All(d Deps) []wizard.Scene {
	return []wizard.Scene{
		NewRegistration(d),
		NewUpdate(d),
		NewRemoval(d),
		NewOwnerRegistration(d),
		NewLostReportCreation(d),
		NewMyReports(d),
		NewOthersReports(d),
	}
}

func warn(text string) wizard.Message {
	return wizard.Plain("⚠️ " + text)
}

func warnHTML(text string) wizard.Message {
	return wizard.HTML("⚠️ " + text)
}

func cancelled() wizard.Message {
	m := wizard.Plain(MsgCancelled)
	m.RemoveKeyboard = true
	return m
}

// cancel sends the cancellation notice and leaves.
func cancel[F any](ctx context.Context, t *wizard.Turn[F]) (wizard.Transition, error) {
	return wizard.Leave(), t.Reply(ctx, cancelled())
}

func leave[F any](ctx context.Context, t *wizard.Turn[F], msgs ...wizard.Message) (wizard.Transition, error) {
	return wizard.Leave(), replyAll(ctx, t, msgs...)
}

func stay[F any](ctx context.Context, t *wizard.Turn[F], msgs ...wizard.Message) (wizard.Transition, error) {
	return t.Stay(), replyAll(ctx, t, msgs...)
}

func next[F any](ctx context.Context, t *wizard.Turn[F], msgs ...wizard.Message) (wizard.Transition, error) {
	return wizard.Next(), replyAll(ctx, t, msgs...)
}

func back[F any](ctx context.Context, t *wizard.Turn[F], msgs ...wizard.Message) (wizard.Transition, error) {
	return wizard.Back(), replyAll(ctx, t, msgs...)
}

type replier interface {
	Reply(ctx context.Context, msg wizard.Message) error
}

func replyAll(ctx context.Context, r replier, msgs ...wizard.Message) error {
	for _, m := range msgs {
		if err := r.Reply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// userID returns the sender id, or false when the platform sent none.
func userID[F any](t *wizard.Turn[F]) (int64, bool) {
	if t.Sender == nil || t.Sender.ID == 0 {
		return 0, false
	}
	return t.Sender.ID, true
}

func speciesByID(ctx context.Context, store storage.Species) (map[string]models.Species, error) {
	list, err := store.ListSpecies(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Species, len(list))
	for _, s := range list {
		out[s.ID] = s
	}
	return out, nil
}

// petLabel prefixes the pet name with its species emoji.
func petLabel(p models.Pet, species map[string]models.Species) string {
	if e := species[p.SpeciesID].Emoji(); e != "" {
		return e + " " + p.Name
	}
	return p.Name
}

// petButtons lists pets two per row with the pet id as data.
func petButtons(pets []models.Pet, species map[string]models.Species) [][]wizard.Button {
	buttons := make([]wizard.Button, 0, len(pets))
	for _, p := range pets {
		buttons = append(buttons, wizard.Button{Label: petLabel(p, species), Data: p.ID})
	}
	return wizard.Grid(2, buttons...)
}

// petPicker loads the user's pets as a keyboard. rows is empty when the user has none.
func petPicker(ctx context.Context, store storage.Store, userID int64, primaryOnly bool) ([][]wizard.Button, error) {
	pets, err := store.ListPetsByOwner(ctx, userID, primaryOnly)
	if err != nil {
		return nil, err
	}
	if len(pets) == 0 {
		return nil, nil
	}
	species, err := speciesByID(ctx, store)
	if err != nil {
		return nil, err
	}
	return petButtons(pets, species), nil
}
