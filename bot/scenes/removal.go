package scenes

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/telegram/format"
	"github.com/m3rciful/woofinder/core/wizard"
)

type removalForm struct {
	PetID   string  `json:"pet_id,omitempty"`
	PetName string  `json:"pet_name,omitempty"`
	Others  []int64 `json:"others,omitempty"`
}

const msgRemoveFailed = "We could not remove the pet. Please try again later."

// NewRemoval deletes a pet and its reports after the user types the pet's
// name. Only the primary owner may remove a pet; co-owners are notified.
func NewRemoval(d Deps) wizard.Scene {
	return wizard.NewScene(Removal,
		wizard.Step[removalForm]{Name: "list", Run: func(ctx context.Context, t *wizard.Turn[removalForm]) (wizard.Transition, error) {
			uid, ok := userID(t)
			if !ok {
				return leave(ctx, t, warn(MsgIdentity))
			}
			rows, err := petPicker(ctx, d.Store, uid, true)
			if err != nil {
				return wizard.Transition{}, err
			}
			if len(rows) == 0 {
				return leave(ctx, t, warn(MsgNoPets))
			}
			return next(ctx, t, wizard.Plain("Select the pet that you want to remove.").WithRows(rows...))
		}},
		wizard.Step[removalForm]{Name: "pet", Run: func(ctx context.Context, t *wizard.Turn[removalForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			data, ok := t.CallbackData()
			if !ok {
				return stay(ctx, t, warn(MsgSelectOption))
			}
			uid, _ := userID(t)
			pet, err := d.Store.GetPet(ctx, data)
			if errors.Is(err, storage.ErrNotFound) || (err == nil && !pet.IsPrimaryOwner(uid)) {
				return leave(ctx, t, warn(MsgPetNotFound))
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			*t.Form = removalForm{PetID: pet.ID, PetName: pet.Name, Others: pet.SecondaryOwners()}
			return next(ctx, t, warnHTML("All the reports and pet data will be erased. <b>This operation is not reversible.</b>\n"+
				"To confirm, please enter the name of the pet to be deleted: "+format.Bold(pet.Name)))
		}},
		wizard.Step[removalForm]{Name: "confirm", Run: func(ctx context.Context, t *wizard.Turn[removalForm]) (wizard.Transition, error) {
			text, _ := t.Text()
			if t.Form.PetID == "" || text != strings.TrimSpace(t.Form.PetName) {
				return cancel(ctx, t)
			}
			removed, err := d.Store.DeleteReportsForPet(ctx, t.Form.PetID)
			if err != nil {
				return wizard.Transition{}, err
			}
			err = d.Store.DeletePet(ctx, t.Form.PetID)
			if errors.Is(err, storage.ErrNotAcknowledged) {
				return leave(ctx, t, warn(msgRemoveFailed))
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			logger.Info(ctx, componentPets, "pet.remove",
				slog.String("status", "ok"),
				slog.String("pet_id", t.Form.PetID),
				slog.Int("reports_removed", removed),
			)
			notice := wizard.HTML("🔔🐾 " + format.Bold(t.Form.PetName) + " has been removed by its primary owner.")
			for _, owner := range t.Form.Others {
				if err := t.Notify(ctx, owner, notice); err != nil {
					logger.Warn(ctx, componentPets, "pet.remove.notify",
						slog.String("status", "fail"),
						slog.Int64("owner_id", owner),
						logger.Err(err),
					)
				}
			}
			return leave(ctx, t, wizard.Plain(MsgPetRemoved))
		}},
	)
}
