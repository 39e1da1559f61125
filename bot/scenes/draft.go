package scenes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/bot/validate"
	"github.com/m3rciful/woofinder/core/telegram/format"
	"github.com/m3rciful/woofinder/core/wizard"
)

// draft accumulates validated pet fields. Only validators write into it.
type draft struct {
	SpeciesID   string      `json:"species_id,omitempty"`
	Name        string      `json:"name,omitempty"`
	OtherNames  []string    `json:"other_names,omitempty"`
	BirthDate   *time.Time  `json:"birth_date,omitempty"`
	Size        models.Size `json:"size,omitempty"`
	Weight      float64     `json:"weight,omitempty"`
	Description string      `json:"description,omitempty"`
	PictureRef  string      `json:"picture_ref,omitempty"`
}

var (
	errIncomplete = errors.New("pet form is incomplete")
	errNoSpecies  = errors.New("species catalogue is empty")
)

// pet converts a complete draft into a new pet owned by owner.
func (d draft) pet(owner int64) (models.Pet, error) {
	var missing []string
	if d.SpeciesID == "" {
		missing = append(missing, string(models.FieldSpecies))
	}
	if d.Name == "" {
		missing = append(missing, string(models.FieldName))
	}
	if d.BirthDate == nil {
		missing = append(missing, string(models.FieldBirthDate))
	}
	if !d.Size.Valid() {
		missing = append(missing, string(models.FieldSize))
	}
	if d.Weight <= 0 {
		missing = append(missing, string(models.FieldWeight))
	}
	if d.Description == "" {
		missing = append(missing, string(models.FieldDescription))
	}
	if d.PictureRef == "" {
		missing = append(missing, string(models.FieldPicture))
	}
	if len(missing) > 0 {
		return models.Pet{}, fmt.Errorf("%w: missing %s", errIncomplete, strings.Join(missing, ", "))
	}
	return models.Pet{
		Owners:          []int64{owner},
		Name:            d.Name,
		OtherNames:      append([]string(nil), d.OtherNames...),
		BirthDate:       *d.BirthDate,
		SpeciesID:       d.SpeciesID,
		Size:            d.Size,
		Weight:          d.Weight,
		Description:     d.Description,
		PictureRemoteID: d.PictureRef,
	}, nil
}

// patch updates only field f. ok is false when the draft does not hold it.
func (d draft) patch(f models.PetField) (p storage.PetPatch, ok bool) {
	switch f {
	case models.FieldName:
		if d.Name == "" {
			return p, false
		}
		p.Name = &d.Name
	case models.FieldOtherNames:
		names := append([]string{}, d.OtherNames...)
		p.OtherNames = &names
	case models.FieldBirthDate:
		if d.BirthDate == nil {
			return p, false
		}
		p.BirthDate = d.BirthDate
	case models.FieldSpecies:
		if d.SpeciesID == "" {
			return p, false
		}
		p.SpeciesID = &d.SpeciesID
	case models.FieldSize:
		if !d.Size.Valid() {
			return p, false
		}
		p.Size = &d.Size
	case models.FieldWeight:
		if d.Weight <= 0 {
			return p, false
		}
		p.Weight = &d.Weight
	case models.FieldDescription:
		if d.Description == "" {
			return p, false
		}
		p.Description = &d.Description
	case models.FieldPicture:
		if d.PictureRef == "" {
			return p, false
		}
		p.PictureRemoteID = &d.PictureRef
	default:
		return p, false
	}
	return p, true
}

// missingInput is the reply when an event of the wrong kind arrives for f.
func missingInput(f models.PetField) string {
	switch f {
	case models.FieldSpecies, models.FieldSize:
		return MsgChooseOption
	case models.FieldName:
		return "You need to specify a name for your pet. Please send again."
	case models.FieldOtherNames:
		return "Incorrect input. Please send again."
	case models.FieldBirthDate:
		return "You need to specify a birthdate for your pet. Please send again."
	case models.FieldWeight:
		return "You need to specify an estimated weight for your pet. Please send again."
	case models.FieldDescription:
		return "You need to specify a description for your pet. Please send again."
	case models.FieldPicture:
		return "You need to send a valid picture. Please send again."
	}
	return MsgSelectOption
}

// read validates ev as field f and stores it. problem is non-empty when the
// input was rejected; the draft is then unchanged.
func (d *draft) read(ctx context.Context, deps Deps, files wizard.FileResolver, f models.PetField, ev wizard.Event) (problem string, err error) {
	text, isText := ev.(wizard.Text)
	switch f {
	case models.FieldSpecies:
		cb, ok := ev.(wizard.Callback)
		if !ok {
			return missingInput(f), nil
		}
		res, err := validate.Species(ctx, deps.Store, cb.Data)
		if err != nil {
			return "", err
		}
		if !res.Valid {
			return res.Message, nil
		}
		d.SpeciesID = res.Value.ID
		return "", nil
	case models.FieldSize:
		var raw string
		switch e := ev.(type) {
		case wizard.Callback:
			raw = e.Data
		case wizard.Text:
			raw = e.Content
		default:
			return missingInput(f), nil
		}
		res := validate.Size(raw)
		if !res.Valid {
			return res.Message, nil
		}
		d.Size = res.Value
		return "", nil
	case models.FieldPicture:
		var ref string
		switch e := ev.(type) {
		case wizard.Photo:
			ref = e.FileRef
		case wizard.Document:
			ref = e.FileRef
		default:
			return missingInput(f), nil
		}
		res := validate.Picture(ctx, files, ref)
		if !res.Valid {
			return res.Message, nil
		}
		d.PictureRef = res.Value
		return "", nil
	}

	if !isText {
		return missingInput(f), nil
	}
	switch f {
	case models.FieldName:
		res := validate.Name(text.Content)
		if !res.Valid {
			return res.Message, nil
		}
		d.Name = res.Value
	case models.FieldOtherNames:
		res := validate.OtherNames(text.Content)
		d.OtherNames = res.Value
	case models.FieldBirthDate:
		res := validate.BirthDate(text.Content, deps.now())
		if !res.Valid {
			return res.Message, nil
		}
		v := res.Value
		d.BirthDate = &v
	case models.FieldWeight:
		res := validate.Weight(text.Content)
		if !res.Valid {
			return res.Message, nil
		}
		d.Weight = res.Value
	case models.FieldDescription:
		res := validate.Description(text.Content)
		if !res.Valid {
			return res.Message, nil
		}
		d.Description = res.Value
	default:
		return MsgSelectOption, nil
	}
	return "", nil
}

// prompt asks for field f. Registration and update share these prompts.
func prompt(ctx context.Context, deps Deps, f models.PetField) (wizard.Message, error) {
	switch f {
	case models.FieldSpecies:
		list, err := deps.Store.ListSpecies(ctx)
		if err != nil {
			return wizard.Message{}, fmt.Errorf("list species: %w", err)
		}
		if len(list) == 0 {
			return wizard.Message{}, errNoSpecies
		}
		buttons := make([]wizard.Button, 0, len(list))
		for _, s := range list {
			label := s.Name
			if e := s.Emoji(); e != "" {
				label = e + " " + s.Name
			}
			buttons = append(buttons, wizard.Button{Label: label, Data: s.ID})
		}
		return wizard.Plain("What kind of pet would you like to register?").WithRows(wizard.Grid(2, buttons...)...), nil
	case models.FieldName:
		return wizard.Plain("Now enter the name of your pet."), nil
	case models.FieldOtherNames:
		return wizard.HTML(fmt.Sprintf("Sometimes pets have more than one name that they can recognize. "+
			`Please enter a list of secondary names separated by a space (max %d), send <b>"no"</b> otherwise.`, validate.MaxOtherNames)), nil
	case models.FieldBirthDate:
		return wizard.HTML("Enter pet's birthdate (format: <b>yyyy-mm-dd</b>)"), nil
	case models.FieldSize:
		sizes := models.Sizes()
		buttons := make([]wizard.Button, 0, len(sizes))
		for _, s := range sizes {
			buttons = append(buttons, wizard.Button{Label: string(s), Data: string(s)})
		}
		return wizard.Plain("Please select the estimated size of your pet").WithRows(wizard.Grid(2, buttons...)...), nil
	case models.FieldWeight:
		return wizard.Plain("Now enter the estimated weight (kg)"), nil
	case models.FieldDescription:
		return wizard.Plain("We are almost done! Please provide a small description about your pet.\n" +
			"Describe details that can help people to recognize your pet, such as hair, eyes/hair color, barking style, hair patterns, etc."), nil
	case models.FieldPicture:
		return wizard.Plain("Last but not least! Send us a picture of your pet. " +
			"Please provide a picture that matches the previous description."), nil
	}
	return wizard.Message{}, fmt.Errorf("no prompt for field %q", f)
}

// petSummary renders a pet card in HTML.
func petSummary(p models.Pet, species models.Species) string {
	var b strings.Builder
	title := p.Name
	if e := species.Emoji(); e != "" {
		title = e + " " + p.Name
	}
	b.WriteString("🐾 " + format.Bold(title) + "\n\n")
	b.WriteString(format.Field("Other names", strings.Join(p.OtherNames, ", ")))
	b.WriteString(format.Field("Species", species.Name))
	b.WriteString(format.Field("Birthdate", format.Date(p.BirthDate)))
	b.WriteString(format.Field("Size", string(p.Size)))
	b.WriteString(format.Field("Weight", fmt.Sprintf("%g kg", p.Weight)))
	b.WriteString(format.Field("Description", p.Description))
	return b.String()
}
