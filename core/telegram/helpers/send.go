package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// outbound is the sender queue used by SendTo while the bot runs.
var outbound atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs d as the queue for SendTo. Nil makes sends synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	outbound.Store(d)
}

// API is the part of the bot used to reach chats outside the current update.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// SendTo delivers what to the private chat of userID. With a queue
// installed delivery is asynchronous and failures only reach the log; a full
// or closed queue falls back to sending inline.
func SendTo(ctx context.Context, api API, userID int64, what interface{}, opts *tele.SendOptions) error {
	if api == nil {
		return errors.New("telegram: no bot to send with")
	}
	endpoint := "sendMessage"
	if _, ok := what.(*tele.Photo); ok {
		endpoint = "sendPhoto"
	}
	send := func() error {
		_, err := api.Send(tele.ChatID(userID), what, opts)
		return err
	}

	q := outbound.Load()
	if q == nil {
		return send()
	}
	err := q.Enqueue(ctx, "notify", endpoint, send)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("endpoint", endpoint),
			logger.Err(err),
		)
		return send()
	}
	return err
}
