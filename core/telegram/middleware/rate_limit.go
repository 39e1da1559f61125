package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/woofinder/core/logger"
	tghelpers "github.com/m3rciful/woofinder/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists update kinds that are never limited: "message",
	// "callback", "inline_query" or "other".
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// lastSeen tracks when each user was last let through.
type lastSeen struct {
	mu    sync.Mutex
	users map[int64]time.Time
}

// allow reports whether userID may pass at now and, if so, records it.
func (l *lastSeen) allow(userID int64, now time.Time, interval time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.users[userID]; ok && now.Sub(last) < interval {
		return false
	}
	if len(l.users) > 4096 {
		for id, t := range l.users {
			if now.Sub(t) >= interval {
				delete(l.users, id)
			}
		}
	}
	l.users[userID] = now
	return true
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware drops updates that follow the previous one of the same
// user within opts.Interval. Dropped updates never reach the wizard.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	seen := &lastSeen{users: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if seen.allow(user.ID, time.Now(), opts.Interval) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "rate.limited",
				slog.String("status", "skip"),
				slog.String("kind", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
