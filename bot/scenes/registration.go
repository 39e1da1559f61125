package scenes

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/wizard"
)

type registrationForm struct {
	Pet draft `json:"pet"`
}

// registrationFields is the order in which a new pet is collected.
var registrationFields = []models.PetField{
	models.FieldSpecies,
	models.FieldName,
	models.FieldOtherNames,
	models.FieldBirthDate,
	models.FieldSize,
	models.FieldWeight,
	models.FieldDescription,
	models.FieldPicture,
}

// NewRegistration collects every pet field, shows a summary and inserts the
// pet only after an explicit "yes".
func NewRegistration(d Deps) wizard.Scene {
	steps := []wizard.Step[registrationForm]{{Name: "intro", Run: func(ctx context.Context, t *wizard.Turn[registrationForm]) (wizard.Transition, error) {
		if _, ok := userID(t); !ok {
			return leave(ctx, t, warn(MsgIdentity))
		}
		*t.Form = registrationForm{}
		first, err := prompt(ctx, d, registrationFields[0])
		if errors.Is(err, errNoSpecies) {
			return leave(ctx, t, warn(MsgNoSpecies), cancelled())
		}
		if err != nil {
			return wizard.Transition{}, err
		}
		intro := wizard.HTML(`Okay! Lets add a new pet to your list! (Enter <b>"exit"</b> to cancel / <b>"back"</b> to go to previous steps)`)
		return next(ctx, t, intro, first)
	}}}

	for i, field := range registrationFields {
		in := input[registrationForm]{
			name: string(field),
			read: func(ctx context.Context, t *wizard.Turn[registrationForm]) (string, error) {
				return t.Form.Pet.read(ctx, d, t.Files(), field, t.Event)
			},
		}
		if i > 0 {
			prev := registrationFields[i-1]
			in.previous = func(ctx context.Context, _ *wizard.Turn[registrationForm]) (wizard.Message, error) {
				return prompt(ctx, d, prev)
			}
		}
		if i+1 < len(registrationFields) {
			following := registrationFields[i+1]
			in.then = func(ctx context.Context, _ *wizard.Turn[registrationForm]) (wizard.Message, error) {
				return prompt(ctx, d, following)
			}
		} else {
			in.then = func(ctx context.Context, t *wizard.Turn[registrationForm]) (wizard.Message, error) {
				return registrationSummary(ctx, d, t.Form.Pet)
			}
		}
		steps = append(steps, in.step())
	}

	steps = append(steps, wizard.Step[registrationForm]{Name: "confirm", Run: func(ctx context.Context, t *wizard.Turn[registrationForm]) (wizard.Transition, error) {
		text, _ := t.Text()
		owner, ok := userID(t)
		if !strings.EqualFold(text, "yes") || !ok {
			return cancel(ctx, t)
		}
		pet, err := t.Form.Pet.pet(owner)
		if err != nil {
			logger.Warn(ctx, componentPets, "pet.register",
				slog.String("status", "fail"),
				logger.Err(err),
			)
			return leave(ctx, t, warn(MsgSaveFailed))
		}
		saved, err := d.Store.InsertPet(ctx, pet)
		if errors.Is(err, storage.ErrNotAcknowledged) {
			return leave(ctx, t, warn(MsgSaveFailed))
		}
		if err != nil {
			return wizard.Transition{}, err
		}
		logger.Info(ctx, componentPets, "pet.register",
			slog.String("status", "ok"),
			slog.String("pet_id", saved.ID),
		)
		return leave(ctx, t, wizard.Plain(MsgPetSaved))
	}})

	return wizard.NewScene(Registration, steps...)
}

func registrationSummary(ctx context.Context, d Deps, pet draft) (wizard.Message, error) {
	species, err := d.Store.GetSpecies(ctx, pet.SpeciesID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return wizard.Message{}, err
	}
	preview := models.Pet{
		Name:        pet.Name,
		OtherNames:  pet.OtherNames,
		SpeciesID:   pet.SpeciesID,
		Size:        pet.Size,
		Weight:      pet.Weight,
		Description: pet.Description,
	}
	if pet.BirthDate != nil {
		preview.BirthDate = *pet.BirthDate
	}
	return wizard.HTML(petSummary(preview, species) + "\n" + MsgConfirmYes), nil
}
