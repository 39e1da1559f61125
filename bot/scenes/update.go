package scenes

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/wizard"
)

type updateForm struct {
	PetID string `json:"pet_id,omitempty"`
	Pet   draft  `json:"pet"`
}

// carryField holds the field being edited between the menu and the value step.
const carryField = "field"

const msgUpdateFailed = "We could not update the pet. Please try again later."

func fieldMenu() wizard.Message {
	fields := models.PetFields()
	buttons := make([]wizard.Button, 0, len(fields))
	for _, f := range fields {
		buttons = append(buttons, wizard.Button{Label: f.Label(), Data: string(f)})
	}
	return wizard.Plain("What would you like to update?").WithRows(wizard.Grid(2, buttons...)...)
}

// NewUpdate edits one field of a pet the user owns.
func NewUpdate(d Deps) wizard.Scene {
	pickPet := func(ctx context.Context, t *wizard.Turn[updateForm]) (wizard.Message, bool, error) {
		id, _ := userID(t)
		rows, err := petPicker(ctx, d.Store, id, false)
		if err != nil || len(rows) == 0 {
			return wizard.Message{}, false, err
		}
		return wizard.Plain("Select the pet that you want to update.").WithRows(rows...), true, nil
	}

	return wizard.NewScene(Update,
		wizard.Step[updateForm]{Name: "list", Run: func(ctx context.Context, t *wizard.Turn[updateForm]) (wizard.Transition, error) {
			if _, ok := userID(t); !ok {
				return leave(ctx, t, warn(MsgIdentity))
			}
			msg, found, err := pickPet(ctx, t)
			if err != nil {
				return wizard.Transition{}, err
			}
			if !found {
				return leave(ctx, t, warn(MsgNoPets))
			}
			return next(ctx, t, msg)
		}},
		wizard.Step[updateForm]{Name: "pet", Run: func(ctx context.Context, t *wizard.Turn[updateForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			data, ok := t.CallbackData()
			if !ok {
				return stay(ctx, t, warn(MsgSelectOption))
			}
			uid, _ := userID(t)
			pet, err := d.Store.GetPet(ctx, data)
			if errors.Is(err, storage.ErrNotFound) || (err == nil && !pet.IsOwner(uid)) {
				return leave(ctx, t, warn(MsgPetNotFound))
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			species, err := d.Store.GetSpecies(ctx, pet.SpeciesID)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return wizard.Transition{}, err
			}
			t.Form.PetID = pet.ID
			return next(ctx, t, wizard.HTML(petSummary(pet, species)), fieldMenu())
		}},
		wizard.Step[updateForm]{Name: "field", Run: func(ctx context.Context, t *wizard.Turn[updateForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			if wizard.IsBack(t.Event) {
				msg, found, err := pickPet(ctx, t)
				if err != nil {
					return wizard.Transition{}, err
				}
				if !found {
					return leave(ctx, t, warn(MsgNoPets))
				}
				return back(ctx, t, msg)
			}
			data, ok := t.CallbackData()
			field := models.PetField(data)
			if !ok || !field.Valid() {
				return stay(ctx, t, warn("Please select one of the available options."))
			}
			msg, err := prompt(ctx, d, field)
			if errors.Is(err, errNoSpecies) {
				return leave(ctx, t, warn(MsgNoSpecies))
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			t.Carry(carryField, string(field))
			return next(ctx, t, msg)
		}},
		wizard.Step[updateForm]{Name: "value", Run: func(ctx context.Context, t *wizard.Turn[updateForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			if wizard.IsBack(t.Event) {
				return back(ctx, t, fieldMenu())
			}
			carried, ok := t.Carried(carryField)
			field := models.PetField(carried)
			if !ok || !field.Valid() || t.Form.PetID == "" {
				if err := t.Reply(ctx, warn(MsgUpdateRestart)); err != nil {
					return wizard.Transition{}, err
				}
				return wizard.Reenter(), nil
			}
			problem, err := t.Form.Pet.read(ctx, d, t.Files(), field, t.Event)
			if err != nil {
				return wizard.Transition{}, err
			}
			if problem != "" {
				t.Carry(carryField, carried)
				return stay(ctx, t, warn("The input is not valid ("+problem+"). Please try again."))
			}
			patch, ok := t.Form.Pet.patch(field)
			if !ok {
				t.Carry(carryField, carried)
				return stay(ctx, t, warn(missingInput(field)))
			}
			err = d.Store.UpdatePet(ctx, t.Form.PetID, patch)
			if errors.Is(err, storage.ErrNotAcknowledged) {
				return leave(ctx, t, warn(msgUpdateFailed))
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			logger.Info(ctx, componentPets, "pet.update",
				slog.String("status", "ok"),
				slog.String("pet_id", t.Form.PetID),
				slog.String("field", carried),
			)
			return leave(ctx, t, wizard.Plain(MsgPetUpdated))
		}},
	)
}
