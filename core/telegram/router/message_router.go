package router

import (
	"context"
	"log/slog"

	tg "github.com/m3rciful/woofinder/core/telegram"
	tghelpers "github.com/m3rciful/woofinder/core/telegram/helpers"
	"github.com/m3rciful/woofinder/core/telegram/middleware"
	"github.com/m3rciful/woofinder/core/wizard"

	tele "gopkg.in/telebot.v4"
)

// Dispatcher is the conversation router every update ends up in. Submit
// must queue req in call order and return without waiting for it.
type Dispatcher interface {
	Submit(ctx context.Context, req wizard.Request, done func(error)) error
}

// messageEndpoints are the message kinds a scene step can consume.
var messageEndpoints = []struct {
	endpoint string
	name     string
}{
	{tele.OnText, "text"},
	{tele.OnLocation, "location"},
	{tele.OnContact, "contact"},
	{tele.OnPhoto, "photo"},
	{tele.OnDocument, "document"},
}

// MessageRoutes binds every message kind to the dispatcher.
func MessageRoutes(d Dispatcher) []tg.Route {
	routes := make([]tg.Route, 0, len(messageEndpoints))
	for _, e := range messageEndpoints {
		routes = append(routes, tg.Route{
			Endpoint: e.endpoint,
			Handler:  wrap(dispatchHandler(d, e.name)),
		})
	}
	return routes
}

// dispatchHandler converts the update into a wizard request and queues it on
// d. The handler summary line is written once the request has been handled.
func dispatchHandler(d Dispatcher, name string, extras ...slog.Attr) tele.HandlerFunc {
	return func(c tele.Context) error {
		req, ok := tg.NewRequest(c)
		if !ok {
			newSummary(name, extras...).log(c, "skip", nil)
			return nil
		}
		s := newSummary(name, append([]slog.Attr{slog.String("event_kind", string(req.Event.Kind()))}, extras...)...)
		ctx := tghelpers.WithHandler(c, s.handler)
		err := d.Submit(ctx, req, func(err error) { s.finish(c, err) })
		if err != nil {
			s.finish(c, err)
		}
		return err
	}
}

func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}
