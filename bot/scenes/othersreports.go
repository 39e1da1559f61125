package scenes

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/m3rciful/woofinder/bot/geo"
	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/telegram/format"
	"github.com/m3rciful/woofinder/core/wizard"
)

// Sighting options offered for someone else's lost pet.
const (
	optSeenIt  = "seen_it"
	optFoundIt = "found_it"
)

const (
	msgSearchPrompt   = "🔎🐾 Send a location to see the list of reports near to it."
	msgSearchResults  = "🔎🐾 We have found some results! This is the list of lost pets that are near to the provided location.\nSelect one to see more detail."
	msgActiveNotFound = "The lost report of the pet was not found. Please try again."
)

type othersReportsForm struct {
	Center  *geo.Point `json:"center,omitempty"`
	PetID   string     `json:"pet_id,omitempty"`
	PetName string     `json:"pet_name,omitempty"`
	Owners  []int64    `json:"owners,omitempty"`
	Option  string     `json:"option,omitempty"`
}

func sightingOptions() wizard.Message {
	return wizard.Plain("Have you seen it? Let the owner know!").WithRows(
		[]wizard.Button{
			{Label: "Yes, I have seen it", Data: optSeenIt},
			{Label: "Yes, I found it", Data: optFoundIt},
		},
		[]wizard.Button{{Label: "Exit", Data: wizard.ExitToken}},
	)
}

func contactRequest() wizard.Message {
	m := wizard.Plain(MsgContactRequest)
	m.RequestContact = true
	return m
}

// sightingNotice tells owners who saw or found their pet and how to reach them.
func sightingNotice(c wizard.Contact, option, petName string) wizard.Message {
	verb, _, _ := strings.Cut(option, "_")
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	return wizard.HTML("🔔🐾 <b>Heads up!</b> " + format.Escape(name) + " has <b>" + verb + "</b> your pet (" + format.Bold(petName) + ")\n" +
		"📞 Their phone number is: " + format.Bold(c.Phone))
}

// NewOthersReports searches active reports around a location and lets the
// user tell the owners they have seen or found the pet.
func NewOthersReports(d Deps) wizard.Scene {
	search := func(ctx context.Context, uid int64, center geo.Point) (wizard.Message, bool, error) {
		own, err := d.Store.ListPetsByOwner(ctx, uid, true)
		if err != nil {
			return wizard.Message{}, false, err
		}
		exclude := make([]string, 0, len(own))
		for _, p := range own {
			exclude = append(exclude, p.ID)
		}
		reports, err := d.Store.FindActiveReportsNear(ctx, storage.NearQuery{
			Center:        center,
			RadiusKm:      d.radius(),
			ExcludePetIDs: exclude,
		})
		if err != nil || len(reports) == 0 {
			return wizard.Message{}, false, err
		}
		ids := make([]string, 0, len(reports))
		seen := make(map[string]models.Report, len(reports))
		for _, r := range reports {
			ids = append(ids, r.PetID)
			seen[r.PetID] = r
		}
		pets, err := d.Store.ListPetsByIDs(ctx, ids)
		if err != nil || len(pets) == 0 {
			return wizard.Message{}, false, err
		}
		species, err := speciesByID(ctx, d.Store)
		if err != nil {
			return wizard.Message{}, false, err
		}
		now := d.now()
		buttons := make([]wizard.Button, 0, len(pets))
		for _, p := range pets {
			r := seen[p.ID]
			label := petLabel(p, species) + " (" + format.Ago(r.LastActivity(), now) + ", " +
				format.Distance(geo.DistanceKm(center, r.LastSeen)) + ")"
			buttons = append(buttons, wizard.Button{Label: label, Data: p.ID})
		}
		return wizard.Plain(msgSearchResults).WithButtons(buttons...), true, nil
	}

	return wizard.NewScene(OthersReports,
		wizard.Step[othersReportsForm]{Name: "prompt", Run: func(ctx context.Context, t *wizard.Turn[othersReportsForm]) (wizard.Transition, error) {
			if _, ok := userID(t); !ok {
				return leave(ctx, t, warn(MsgIdentity))
			}
			*t.Form = othersReportsForm{}
			return next(ctx, t, wizard.Plain(msgSearchPrompt))
		}},
		wizard.Step[othersReportsForm]{Name: "location", Run: func(ctx context.Context, t *wizard.Turn[othersReportsForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			center, ok := locationOf(t.Event)
			if !ok {
				return stay(ctx, t, warn(MsgLocation))
			}
			uid, _ := userID(t)
			msg, found, err := search(ctx, uid, center)
			if err != nil {
				return wizard.Transition{}, err
			}
			if !found {
				return leave(ctx, t, wizard.Plain(MsgNoNearReports))
			}
			t.Form.Center = &center
			return next(ctx, t, msg)
		}},
		wizard.Step[othersReportsForm]{Name: "pet", Run: func(ctx context.Context, t *wizard.Turn[othersReportsForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			if wizard.IsBack(t.Event) {
				return back(ctx, t, wizard.Plain(msgSearchPrompt))
			}
			data, ok := t.CallbackData()
			if !ok {
				return stay(ctx, t, warn(MsgSelectListed))
			}
			uid, _ := userID(t)
			pet, err := d.Store.GetPet(ctx, data)
			if errors.Is(err, storage.ErrNotFound) || (err == nil && pet.IsPrimaryOwner(uid)) {
				return leave(ctx, t, warn(MsgPetNotFound), cancelled())
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			report, err := d.Store.ActiveReportForPet(ctx, pet.ID)
			if errors.Is(err, storage.ErrNotFound) {
				return leave(ctx, t, warn(msgActiveNotFound), cancelled())
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			sp, err := d.Store.GetSpecies(ctx, pet.SpeciesID)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return wizard.Transition{}, err
			}
			t.Form.PetID = pet.ID
			t.Form.PetName = pet.Name
			t.Form.Owners = append([]int64(nil), pet.Owners...)

			now := d.now()
			summary := petSummary(pet, sp) +
				format.Field("Report created at", format.DateTime(report.CreatedAt)+" ("+format.Ago(report.CreatedAt, now)+")")
			if report.UpdatedAt != nil {
				summary += format.Field("Report updated at", format.DateTime(*report.UpdatedAt)+" ("+format.Ago(*report.UpdatedAt, now)+")")
			}
			msgs := []wizard.Message{
				wizard.HTML(summary),
				wizard.Plain("🗺️ This is the location where it was originally reported as lost."),
				locationMessage(report.LastSeen),
			}
			if pet.PictureRemoteID != "" {
				msgs = append(msgs,
					wizard.Plain("📷 And a reference picture."),
					wizard.Message{PhotoRef: pet.PictureRemoteID},
				)
			}
			msgs = append(msgs, sightingOptions())
			return next(ctx, t, msgs...)
		}},
		wizard.Step[othersReportsForm]{Name: "option", Run: func(ctx context.Context, t *wizard.Turn[othersReportsForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			if wizard.IsBack(t.Event) && t.Form.Center != nil {
				uid, _ := userID(t)
				msg, found, err := search(ctx, uid, *t.Form.Center)
				if err != nil {
					return wizard.Transition{}, err
				}
				if !found {
					return leave(ctx, t, wizard.Plain(MsgNoNearReports))
				}
				return back(ctx, t, msg)
			}
			data, ok := t.CallbackData()
			if !ok || (data != optSeenIt && data != optFoundIt) {
				return stay(ctx, t, warn(MsgListedOption))
			}
			t.Form.Option = data
			return next(ctx, t, contactRequest())
		}},
		wizard.Step[othersReportsForm]{Name: "contact", Run: func(ctx context.Context, t *wizard.Turn[othersReportsForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			c, ok := t.Event.(wizard.Contact)
			if !ok || strings.TrimSpace(c.Phone) == "" {
				return stay(ctx, t, warn(MsgContactMissing))
			}
			notice := sightingNotice(c, t.Form.Option, t.Form.PetName)
			notified := 0
			for _, owner := range t.Form.Owners {
				if err := t.Notify(ctx, owner, notice); err != nil {
					logger.Warn(ctx, componentReports, "sighting.notify",
						slog.String("status", "fail"),
						slog.Int64("owner_id", owner),
						logger.Err(err),
					)
					continue
				}
				notified++
			}
			logger.Info(ctx, componentReports, "sighting.share",
				slog.String("status", "ok"),
				slog.String("pet_id", t.Form.PetID),
				slog.String("option", t.Form.Option),
				slog.String("phone", c.Phone),
				slog.Int("notified", notified),
			)
			done := wizard.Plain(MsgContactShared)
			done.RemoveKeyboard = true
			return leave(ctx, t, done)
		}},
	)
}
