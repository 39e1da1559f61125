package scenes

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/bot/validate"
	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/telegram/format"
	"github.com/m3rciful/woofinder/core/wizard"
)

type ownersForm struct {
	PetID string `json:"pet_id,omitempty"`
}

const (
	msgOwnersFailed  = "We could not link the owner IDs. Please try again later."
	msgOwnersMissing = "Please provide the IDs of new owners to be linked to the current pet."
	msgPetGone       = "The pet was removed. Operation cancelled."
)

// NewOwnerRegistration links secondary owners to a pet of the primary owner.
func NewOwnerRegistration(d Deps) wizard.Scene {
	pickPet := func(ctx context.Context, uid int64) (wizard.Message, bool, error) {
		rows, err := petPicker(ctx, d.Store, uid, true)
		if err != nil || len(rows) == 0 {
			return wizard.Message{}, false, err
		}
		return wizard.Plain("🐾 Select one of your current pets 🐾").WithRows(rows...), true, nil
	}

	return wizard.NewScene(OwnerRegistration,
		wizard.Step[ownersForm]{Name: "list", Run: func(ctx context.Context, t *wizard.Turn[ownersForm]) (wizard.Transition, error) {
			uid, ok := userID(t)
			if !ok {
				return leave(ctx, t, warn(MsgIdentity))
			}
			msg, found, err := pickPet(ctx, uid)
			if err != nil {
				return wizard.Transition{}, err
			}
			if !found {
				return leave(ctx, t, warn("You don't have pets registered right now."))
			}
			return next(ctx, t, msg)
		}},
		wizard.Step[ownersForm]{Name: "pet", Run: func(ctx context.Context, t *wizard.Turn[ownersForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			data, ok := t.CallbackData()
			if !ok {
				return stay(ctx, t, warn(MsgSelectListed))
			}
			uid, _ := userID(t)
			pet, err := d.Store.GetPet(ctx, data)
			if errors.Is(err, storage.ErrNotFound) || (err == nil && !pet.IsPrimaryOwner(uid)) {
				return leave(ctx, t, warn(msgPetGone))
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			t.Form.PetID = pet.ID

			var b strings.Builder
			b.WriteString("These are the current secondary owners that have been linked:\n\n")
			others := pet.SecondaryOwners()
			users, err := d.Store.GetUsers(ctx, others)
			if err != nil {
				return wizard.Transition{}, err
			}
			for _, u := range users {
				b.WriteString("· " + format.Bold(u.DisplayName()) + "\n")
			}
			if len(others) == 0 {
				b.WriteString("ℹ️ There are no secondary owners linked to the current pet.\n")
			}
			b.WriteString("\nEnter the IDs of the users to be linked to the current pet separated by a space.")
			return next(ctx, t, wizard.HTML(b.String()))
		}},
		wizard.Step[ownersForm]{Name: "ids", Run: func(ctx context.Context, t *wizard.Turn[ownersForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			if wizard.IsBack(t.Event) {
				uid, _ := userID(t)
				msg, found, err := pickPet(ctx, uid)
				if err != nil {
					return wizard.Transition{}, err
				}
				if !found {
					return leave(ctx, t, warn(msgPetGone))
				}
				return back(ctx, t, msg)
			}
			text, ok := t.Text()
			if !ok || text == "" {
				return stay(ctx, t, warn(msgOwnersMissing))
			}

			pet, err := d.Store.GetPet(ctx, t.Form.PetID)
			if errors.Is(err, storage.ErrNotFound) {
				return leave(ctx, t, warn(msgPetGone))
			}
			if err != nil {
				return wizard.Transition{}, err
			}

			accepted, rejected := validate.OwnerIDs(text, pet.Owners)
			var msgs []wizard.Message
			for _, r := range rejected {
				msgs = append(msgs, warnHTML(`Could not add secondary owner <b>"`+format.Escape(r.Token)+`"</b>, `+r.Reason))
			}
			if len(accepted) == 0 {
				return leave(ctx, t, append(msgs, warn(MsgOwnersInvalid))...)
			}

			owners := append(slices.Clone(pet.Owners), accepted...)
			err = d.Store.SetPetOwners(ctx, pet.ID, owners)
			if errors.Is(err, storage.ErrNotAcknowledged) {
				return leave(ctx, t, append(msgs, warn(msgOwnersFailed))...)
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			logger.Info(ctx, componentPets, "pet.owners",
				slog.String("status", "ok"),
				slog.String("pet_id", pet.ID),
				slog.Int("linked", len(accepted)),
				slog.Int("rejected", len(rejected)),
			)
			notice := wizard.HTML("🔔🐾 You have been linked as an owner of " + format.Bold(pet.Name) + ".")
			for _, id := range accepted {
				if err := t.Notify(ctx, id, notice); err != nil {
					logger.Warn(ctx, componentPets, "pet.owners.notify",
						slog.String("status", "fail"),
						slog.Int64("owner_id", id),
						logger.Err(err),
					)
				}
			}
			return leave(ctx, t, append(msgs, wizard.Plain(MsgOwnersLinked))...)
		}},
	)
}
