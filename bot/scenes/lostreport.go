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

type lostReportForm struct {
	PetID    string     `json:"pet_id,omitempty"`
	PetName  string     `json:"pet_name,omitempty"`
	LastSeen *geo.Point `json:"last_seen,omitempty"`
}

// locationOf extracts a valid point from a Location event.
func locationOf(ev wizard.Event) (geo.Point, bool) {
	loc, ok := ev.(wizard.Location)
	if !ok {
		return geo.Point{}, false
	}
	p := geo.Point{Lat: loc.Lat, Lon: loc.Lon}
	return p, p.Valid()
}

func locationMessage(p geo.Point) wizard.Message {
	return wizard.Message{Location: &wizard.Point{Lat: p.Lat, Lon: p.Lon}}
}

// hasActiveReport is the check half of the check-then-insert rule. Two
// concurrent submissions can both pass it.
func hasActiveReport(ctx context.Context, store storage.Reports, petID string) (bool, error) {
	n, err := store.CountActiveReports(ctx, petID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NewLostReportCreation files a lost report for one of the user's pets.
func NewLostReportCreation(d Deps) wizard.Scene {
	pickPet := func(ctx context.Context, uid int64) (wizard.Message, bool, error) {
		rows, err := petPicker(ctx, d.Store, uid, false)
		if err != nil || len(rows) == 0 {
			return wizard.Message{}, false, err
		}
		return wizard.Plain("We are sorry that your pet is lost. To help you please select the lost one.").WithRows(rows...), true, nil
	}
	locationPrompt := wizard.Plain("Please send us the location (can be an estimation) where your pet got lost.")

	return wizard.NewScene(LostReportCreation,
		wizard.Step[lostReportForm]{Name: "list", Run: func(ctx context.Context, t *wizard.Turn[lostReportForm]) (wizard.Transition, error) {
			uid, ok := userID(t)
			if !ok {
				return leave(ctx, t, warn(MsgIdentity))
			}
			msg, found, err := pickPet(ctx, uid)
			if err != nil {
				return wizard.Transition{}, err
			}
			if !found {
				return leave(ctx, t, warnHTML("You don't have pets registered right now. Use the <b>/pets</b> menu to register them."))
			}
			return next(ctx, t, msg)
		}},
		wizard.Step[lostReportForm]{Name: "pet", Run: func(ctx context.Context, t *wizard.Turn[lostReportForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			data, ok := t.CallbackData()
			if !ok {
				return stay(ctx, t, warn(MsgSelectListed))
			}
			uid, _ := userID(t)
			pet, err := d.Store.GetPet(ctx, data)
			if errors.Is(err, storage.ErrNotFound) || (err == nil && !pet.IsOwner(uid)) {
				return leave(ctx, t, warn(MsgPetNotFound))
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			active, err := hasActiveReport(ctx, d.Store, pet.ID)
			if err != nil {
				return wizard.Transition{}, err
			}
			if active {
				return leave(ctx, t, warnHTML(MsgActiveReport))
			}
			*t.Form = lostReportForm{PetID: pet.ID, PetName: pet.Name}
			return next(ctx, t, locationPrompt)
		}},
		wizard.Step[lostReportForm]{Name: "location", Run: func(ctx context.Context, t *wizard.Turn[lostReportForm]) (wizard.Transition, error) {
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
					return leave(ctx, t, warn(MsgNoPets))
				}
				return back(ctx, t, msg)
			}
			p, ok := locationOf(t.Event)
			if !ok {
				return stay(ctx, t, warn(MsgLocation))
			}
			t.Form.LastSeen = &p
			summary := wizard.HTML("🔎🐾 Lost report for " + format.Bold(t.Form.PetName) + "\n📍 <b>Last seen</b>:")
			return next(ctx, t, summary, locationMessage(p), wizard.HTML(MsgConfirmYes))
		}},
		wizard.Step[lostReportForm]{Name: "confirm", Run: func(ctx context.Context, t *wizard.Turn[lostReportForm]) (wizard.Transition, error) {
			text, _ := t.Text()
			if !strings.EqualFold(text, "yes") || t.Form.PetID == "" || t.Form.LastSeen == nil {
				return cancel(ctx, t)
			}
			active, err := hasActiveReport(ctx, d.Store, t.Form.PetID)
			if err != nil {
				return wizard.Transition{}, err
			}
			if active {
				return leave(ctx, t, warnHTML(MsgActiveReport))
			}
			report, err := d.Store.InsertReport(ctx, models.Report{
				PetID:    t.Form.PetID,
				IsActive: true,
				LastSeen: *t.Form.LastSeen,
			})
			if errors.Is(err, storage.ErrNotAcknowledged) {
				return leave(ctx, t, warn(MsgReportFailed))
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			logger.Info(ctx, componentReports, "report.create",
				slog.String("status", "ok"),
				slog.String("pet_id", report.PetID),
				slog.String("report_id", report.ID),
			)
			return leave(ctx, t, wizard.HTML(MsgReportSaved), wizard.Plain(MsgReportNotify))
		}},
	)
}
