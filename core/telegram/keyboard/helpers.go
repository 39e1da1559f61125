package keyboard

import (
	"github.com/m3rciful/woofinder/core/wizard"

	tele "gopkg.in/telebot.v4"
)

const defaultContactButtonText = "📞 Send your phone number"

// RemoveKeyboard returns a markup that hides the keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ContactRequest returns a one-time reply keyboard whose single button shares
// the user's phone number. An empty label falls back to the default text.
func ContactRequest(label string) *tele.ReplyMarkup {
	if label == "" {
		label = defaultContactButtonText
	}
	return &tele.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
		ReplyKeyboard:   [][]tele.ReplyButton{{{Text: label, Contact: true}}},
	}
}

// InlineButtonsRows builds an inline keyboard from rows of wizard buttons.
// Buttons carry no telebot unique name, so Data comes back unchanged.
func InlineButtonsRows(rows ...[]wizard.Button) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = tele.InlineButton{Text: btn.Label, Data: btn.Data}
		}
		inline = append(inline, r)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// InlineButtons places each button on its own row.
func InlineButtons(buttons ...wizard.Button) *tele.ReplyMarkup {
	return InlineButtonsRows(wizard.Grid(1, buttons...)...)
}

// Markup picks the keyboard attached to msg, or nil when it has none.
// A contact request wins over inline buttons.
func Markup(msg wizard.Message) *tele.ReplyMarkup {
	switch {
	case msg.RequestContact:
		return ContactRequest("")
	case len(msg.Buttons) > 0:
		return InlineButtonsRows(msg.Buttons...)
	case msg.RemoveKeyboard:
		return RemoveKeyboard()
	}
	return nil
}
