package helpers

import (
	"context"

	"github.com/m3rciful/woofinder/core/logger"

	tele "gopkg.in/telebot.v4"
)

const requestCtxKey = "request_ctx"

// BuildContext returns the request context of c. The first call derives it
// from the update: rid, update/user/chat ids and the "tg" logger.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(requestCtxKey).(context.Context); ok {
		return ctx
	}
	upd := c.Update()
	key := ConversationKey(c)

	ctx := logger.WithRID(context.Background(), logger.BuildRID(upd.ID, key.ChatID, key.UserID))
	ctx = logger.WithUpdateMeta(ctx, upd.ID, key.UserID, key.ChatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	c.Set(requestCtxKey, ctx)
	return ctx
}

// WithHandler records handler in the request context of c and returns it.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" || logger.HandlerFrom(ctx) == handler {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	c.Set(requestCtxKey, ctx)
	return ctx
}
