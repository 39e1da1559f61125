// Package handlers answers the commands and menu buttons that live outside
// any scene, and lists every trigger the bot reacts to.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/m3rciful/woofinder/bot/models"
	"github.com/m3rciful/woofinder/bot/scenes"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/telegram/format"
	"github.com/m3rciful/woofinder/core/wizard"
)

// Command names.
const (
	CmdStart   = "start"
	CmdPets    = "pets"
	CmdReports = "reports"
	CmdStats   = "stats"
)

// Menu actions. Each one enters the scene of the same purpose.
const (
	ActionPetRegister      = "pet_register"
	ActionPetUpdate        = "pet_update"
	ActionPetRemove        = "pet_remove"
	ActionPetOwnerRegister = "pet_owner_register"
	ActionPetLostReport    = "pet_create_lost_report"
	ActionMyReports        = "display_my_lost_reports"
	ActionOthersReports    = "display_others_lost_reports"
)

const (
	msgPetsMenu    = "<b>🐾 Pets menu 🐾</b>"
	msgReportsMenu = "<b>🔎 Lost pet reports 🔎</b>"
	msgHelp        = "🐾 Use /pets to manage your pets or /reports to look for lost pets."
	msgForbidden   = "⛔ This command is not available."
)

// Handlers holds the stores the stateless handlers read.
type Handlers struct {
	store storage.Store
}

// New builds the handlers on top of store.
func New(store storage.Store) *Handlers {
	return &Handlers{store: store}
}

// Triggers lists every command and menu action, in menu order.
func (h *Handlers) Triggers() []wizard.Trigger {
	return []wizard.Trigger{
		{Kind: wizard.TriggerCommand, Token: CmdStart, Description: "Welcome message to the bot and registration.", Handler: h.Start},
		{Kind: wizard.TriggerCommand, Token: CmdPets, Description: "Displays the list of available options for pets.", Handler: h.PetsMenu},
		{Kind: wizard.TriggerCommand, Token: CmdReports, Description: "Displays the list of available options for lost pet reports", Handler: h.ReportsMenu},
		{Kind: wizard.TriggerCommand, Token: CmdStats, Description: "Pets and active reports counters.", Handler: h.Stats, AdminOnly: true, Hidden: true},

		{Kind: wizard.TriggerAction, Token: ActionPetRegister, Title: "Register new pet", Scene: scenes.Registration},
		{Kind: wizard.TriggerAction, Token: ActionPetUpdate, Title: "Update pet", Scene: scenes.Update},
		{Kind: wizard.TriggerAction, Token: ActionPetRemove, Title: "Remove pet", Scene: scenes.Removal},
		{Kind: wizard.TriggerAction, Token: ActionPetOwnerRegister, Title: "Register pet owner", Scene: scenes.OwnerRegistration},
		{Kind: wizard.TriggerAction, Token: ActionPetLostReport, Title: "Report lost pet", Scene: scenes.LostReportCreation},
		{Kind: wizard.TriggerAction, Token: ActionMyReports, Title: "My reports", Scene: scenes.MyReports},
		{Kind: wizard.TriggerAction, Token: ActionOthersReports, Title: "See other's reports", Scene: scenes.OthersReports},
	}
}

// Options returns the dispatcher options matching these handlers.
func (h *Handlers) Options(adminID int64) wizard.DispatcherOptions {
	return wizard.DispatcherOptions{
		AdminID:   adminID,
		Fallback:  h.Help,
		Forbidden: wizard.Plain(msgForbidden),
	}
}

// Start greets the user by username, falling back to the first name.
func (h *Handlers) Start(ctx context.Context, req wizard.Request) error {
	name := "user"
	if s := req.Sender; s != nil {
		switch {
		case s.Username != "":
			name = s.Username
		case s.FirstName != "":
			name = s.FirstName
		}
	}
	text := fmt.Sprintf("🦴🐶 Hey %s! Welcome to <b>WooFinder</b> 🐾🐱\nA telegram bot that helps you to find lost and found pets.",
		format.Bold(name))
	return req.Out.Reply(ctx, wizard.HTML(text))
}

// PetsMenu shows the pet actions.
func (h *Handlers) PetsMenu(ctx context.Context, req wizard.Request) error {
	t := triggerButtons(h.Triggers())
	msg := wizard.HTML(msgPetsMenu).WithRows(
		[]wizard.Button{t[ActionPetRegister], t[ActionPetUpdate]},
		[]wizard.Button{t[ActionPetRemove], t[ActionPetOwnerRegister]},
		[]wizard.Button{t[ActionPetLostReport]},
	)
	return req.Out.Reply(ctx, msg)
}

// ReportsMenu shows the report actions.
func (h *Handlers) ReportsMenu(ctx context.Context, req wizard.Request) error {
	t := triggerButtons(h.Triggers())
	msg := wizard.HTML(msgReportsMenu).WithRows(
		[]wizard.Button{t[ActionMyReports], t[ActionOthersReports]},
	)
	return req.Out.Reply(ctx, msg)
}

// Stats reports how many pets and active reports are stored.
func (h *Handlers) Stats(ctx context.Context, req wizard.Request) error {
	pets, err := h.store.CountPets(ctx)
	if err != nil {
		return fmt.Errorf("count pets: %w", err)
	}
	reports, err := h.store.CountReports(ctx, true)
	if err != nil {
		return fmt.Errorf("count reports: %w", err)
	}
	text := "<b>📊 WooFinder stats</b>\n" +
		format.Field("Pets", strconv.Itoa(pets)) +
		format.Field("Active reports", strconv.Itoa(reports))
	return req.Out.Reply(ctx, wizard.HTML(text))
}

// Help answers anything no scene or trigger claimed.
func (h *Handlers) Help(ctx context.Context, req wizard.Request) error {
	if req.Out == nil {
		return nil
	}
	return req.Out.Reply(ctx, wizard.Plain(msgHelp))
}

// EnsureUser stores the sender before every event so owners can be looked up
// and notified later. CreatedAt is kept by the store on update.
func EnsureUser(users storage.Users) wizard.Middleware {
	return func(next wizard.HandlerFunc) wizard.HandlerFunc {
		return func(ctx context.Context, req wizard.Request) error {
			s := req.Sender
			if s == nil {
				return next(ctx, req)
			}
			u := models.User{
				ID:           s.ID,
				ChatID:       req.Conversation.ChatID,
				FirstName:    s.FirstName,
				LastName:     s.LastName,
				Username:     s.Username,
				LanguageCode: s.LanguageCode,
				IsBot:        s.IsBot,
				IsPremium:    s.IsPremium,
			}
			if err := users.UpsertUser(ctx, u); err != nil {
				return fmt.Errorf("upsert user %d: %w", s.ID, err)
			}
			logger.Debug(ctx, "service.users", "user.upsert", slog.String("status", "ok"))
			return next(ctx, req)
		}
	}
}

func triggerButtons(triggers []wizard.Trigger) map[string]wizard.Button {
	out := make(map[string]wizard.Button, len(triggers))
	for _, t := range triggers {
		if t.Kind == wizard.TriggerAction {
			out[t.Token] = t.Button()
		}
	}
	return out
}
