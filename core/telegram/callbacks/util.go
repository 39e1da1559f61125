package callbacks

import (
	"strings"

	"github.com/m3rciful/woofinder/core/wizard"

	tele "gopkg.in/telebot.v4"
)

// Data returns the button data as scenes see it. Telebot strips its
// "\f<unique>|" prefix into cb.Unique; such buttons are folded back into the
// token:payload form so both encodings route the same way.
func Data(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return wizard.CallbackData(cb.Unique, cb.Data)
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	if unique, payload, ok := strings.Cut(raw, "|"); ok && raw != cb.Data {
		return wizard.CallbackData(unique, payload)
	}
	return raw
}

// Split returns the action token and payload of a callback.
func Split(cb *tele.Callback) (key, payload string) {
	return wizard.SplitCallback(Data(cb))
}

// CallbackKey returns the action token of the current callback, if any.
func CallbackKey(c tele.Context) string {
	key, _ := Split(c.Callback())
	return key
}
