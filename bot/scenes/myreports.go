package scenes

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/telegram/format"
	"github.com/m3rciful/woofinder/core/wizard"
)

// Report management options.
const (
	optDeleteReport = "delete_report"
	optUpdateCoords = "update_coords"
	optMarkFound    = "mark_found"
)

const (
	msgNoOwnReports     = "You don't have lost reports right now. Use the <b>/pets</b> menu to create one."
	msgReportNotFound   = "The report was not found. Please try again later."
	msgReportUpdateFail = "We could not update the report. Please try again later."
	msgNewLocation      = "Please send the new location where your pet was last seen."
)

type myReportsForm struct {
	ReportID string `json:"report_id,omitempty"`
	PetName  string `json:"pet_name,omitempty"`
	Active   bool   `json:"active,omitempty"`
}

func reportOptions(active bool) wizard.Message {
	buttons := []wizard.Button{
		{Label: "🗑️ Delete report", Data: optDeleteReport},
		{Label: "📍 Update location", Data: optUpdateCoords},
	}
	if active {
		buttons = append(buttons, wizard.Button{Label: "✔️ Mark as found", Data: optMarkFound})
	}
	return wizard.Plain("What do you want to do with this report?").WithButtons(buttons...)
}

// NewMyReports lets owners review, relocate, close or delete their reports.
func NewMyReports(d Deps) wizard.Scene {
	listReports := func(ctx context.Context, uid int64) (wizard.Message, bool, error) {
		pets, err := d.Store.ListPetsByOwner(ctx, uid, false)
		if err != nil || len(pets) == 0 {
			return wizard.Message{}, false, err
		}
		ids := make([]string, 0, len(pets))
		byID := make(map[string]models.Pet, len(pets))
		for _, p := range pets {
			ids = append(ids, p.ID)
			byID[p.ID] = p
		}
		reports, err := d.Store.ListReportsForPets(ctx, ids, false)
		if err != nil || len(reports) == 0 {
			return wizard.Message{}, false, err
		}
		species, err := speciesByID(ctx, d.Store)
		if err != nil {
			return wizard.Message{}, false, err
		}
		now := d.now()
		buttons := make([]wizard.Button, 0, len(reports))
		for _, r := range reports {
			label := petLabel(byID[r.PetID], species) + " (" + format.Ago(r.LastActivity(), now) + ")"
			if !r.IsActive {
				label = "✔️ " + label
			}
			buttons = append(buttons, wizard.Button{Label: label, Data: r.ID})
		}
		return wizard.Plain("🔎🐾 Please select one of your current reports.").WithRows(wizard.Grid(2, buttons...)...), true, nil
	}

	return wizard.NewScene(MyReports,
		wizard.Step[myReportsForm]{Name: "list", Run: func(ctx context.Context, t *wizard.Turn[myReportsForm]) (wizard.Transition, error) {
			uid, ok := userID(t)
			if !ok {
				return leave(ctx, t, warn(MsgIdentity))
			}
			msg, found, err := listReports(ctx, uid)
			if err != nil {
				return wizard.Transition{}, err
			}
			if !found {
				return leave(ctx, t, warnHTML(msgNoOwnReports))
			}
			return next(ctx, t, msg)
		}},
		wizard.Step[myReportsForm]{Name: "report", Run: func(ctx context.Context, t *wizard.Turn[myReportsForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			data, ok := t.CallbackData()
			if !ok {
				return stay(ctx, t, warn(MsgSelectOption))
			}
			uid, _ := userID(t)
			report, err := d.Store.GetReport(ctx, data)
			if errors.Is(err, storage.ErrNotFound) {
				return leave(ctx, t, warn(msgReportNotFound))
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			pet, err := d.Store.GetPet(ctx, report.PetID)
			if errors.Is(err, storage.ErrNotFound) || (err == nil && !pet.IsOwner(uid)) {
				return leave(ctx, t, warn(msgReportNotFound))
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			*t.Form = myReportsForm{ReportID: report.ID, PetName: pet.Name, Active: report.IsActive}
			return next(ctx, t,
				wizard.HTML(reportSummary(pet, report, d.now())),
				locationMessage(report.LastSeen),
				reportOptions(report.IsActive),
			)
		}},
		wizard.Step[myReportsForm]{Name: "option", Run: func(ctx context.Context, t *wizard.Turn[myReportsForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			if wizard.IsBack(t.Event) {
				uid, _ := userID(t)
				msg, found, err := listReports(ctx, uid)
				if err != nil {
					return wizard.Transition{}, err
				}
				if !found {
					return leave(ctx, t, warnHTML(msgNoOwnReports))
				}
				return back(ctx, t, msg)
			}
			data, ok := t.CallbackData()
			if !ok {
				return stay(ctx, t, warn(MsgChooseOption))
			}
			switch {
			case data == optDeleteReport:
				err := d.Store.DeleteReport(ctx, t.Form.ReportID)
				if errors.Is(err, storage.ErrNotAcknowledged) {
					return leave(ctx, t, warn(msgReportUpdateFail))
				}
				if err != nil {
					return wizard.Transition{}, err
				}
				logReport(ctx, "report.delete", t.Form.ReportID)
				return leave(ctx, t, wizard.Plain(MsgReportRemoved))
			case data == optUpdateCoords:
				return next(ctx, t, wizard.Plain(msgNewLocation))
			case data == optMarkFound && t.Form.Active:
				err := d.Store.SetReportActive(ctx, t.Form.ReportID, false)
				if errors.Is(err, storage.ErrNotAcknowledged) {
					return leave(ctx, t, warn(msgReportUpdateFail))
				}
				if err != nil {
					return wizard.Transition{}, err
				}
				logReport(ctx, "report.found", t.Form.ReportID)
				return leave(ctx, t, wizard.Plain(MsgReportFound))
			}
			return stay(ctx, t, warn(MsgChooseOption))
		}},
		wizard.Step[myReportsForm]{Name: "location", Run: func(ctx context.Context, t *wizard.Turn[myReportsForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return cancel(ctx, t)
			}
			if wizard.IsBack(t.Event) {
				return back(ctx, t, reportOptions(t.Form.Active))
			}
			p, ok := locationOf(t.Event)
			if !ok {
				return stay(ctx, t, warn(MsgLocation))
			}
			err := d.Store.UpdateReportLocation(ctx, t.Form.ReportID, p)
			if errors.Is(err, storage.ErrNotAcknowledged) {
				return leave(ctx, t, warn(msgReportUpdateFail))
			}
			if err != nil {
				return wizard.Transition{}, err
			}
			logReport(ctx, "report.relocate", t.Form.ReportID)
			return leave(ctx, t, wizard.Plain(MsgLocationSaved))
		}},
	)
}

func logReport(ctx context.Context, event, reportID string) {
	logger.Info(ctx, componentReports, event,
		slog.String("status", "ok"),
		slog.String("report_id", reportID),
	)
}

// reportSummary renders the pet and report state for an HTML message.
func reportSummary(pet models.Pet, r models.Report, now time.Time) string {
	var b strings.Builder
	b.WriteString("🐾 " + format.Bold(pet.Name) + "\n")
	status := "active"
	if !r.IsActive {
		status = "found"
	}
	b.WriteString(format.Field("Status", status))
	b.WriteString(format.Field("Created", format.DateTime(r.CreatedAt)+" ("+format.Ago(r.CreatedAt, now)+")"))
	if r.UpdatedAt != nil {
		b.WriteString(format.Field("Updated", format.DateTime(*r.UpdatedAt)+" ("+format.Ago(*r.UpdatedAt, now)+")"))
	}
	b.WriteString("🗺️ <b>Last seen</b>:")
	return b.String()
}
