package middleware

import (
	"log/slog"
	"sync"

	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/woofinder/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// recentUpdates remembers the last few update ids so the receipt line is
// written once even when the middleware wraps both the bot and a route.
type recentUpdates struct {
	mu   sync.Mutex
	ids  [128]int
	next int
}

// seen adds id and reports whether it was already there.
func (r *recentUpdates) seen(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.ids {
		if v == id {
			return true
		}
	}
	r.ids[r.next] = id
	r.next = (r.next + 1) % len(r.ids)
	return false
}

var received recentUpdates

// LoggerMiddleware prepares the request context and writes a sampled
// "update.received" debug line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()
		if upd.ID != 0 && logger.ShouldSampleDebug() && !received.seen(upd.ID) {
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received",
				append([]slog.Attr{slog.String("status", "ok")}, updateAttrs(c)...)...)
		}
		return next(c)
	}
}

func updateAttrs(c tele.Context) []slog.Attr {
	var attrs []slog.Attr
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}

	upd := c.Update()
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.Split(upd.Callback)
		attrs = append(attrs,
			slog.String("kind", "callback"),
			slog.String("cb_key", logger.SanitizeLimit(key, 128)),
			slog.String("payload", logger.SanitizeLimit(payload, 256)),
		)
	case upd.Message != nil:
		kind := messageKind(upd.Message)
		attrs = append(attrs, slog.String("kind", kind))
		if kind == "text" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Message.Text, 256)))
		}
	}
	return attrs
}

// messageKind names the payload of an inbound message. Locations and contacts
// are never logged verbatim.
func messageKind(m *tele.Message) string {
	switch {
	case m.Location != nil:
		return "location"
	case m.Contact != nil:
		return "contact"
	case m.Photo != nil:
		return "photo"
	case m.Document != nil:
		return "document"
	}
	return "text"
}
