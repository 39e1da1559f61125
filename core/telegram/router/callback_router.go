package router

import (
	"log/slog"

	"github.com/m3rciful/woofinder/core/logger"
	tg "github.com/m3rciful/woofinder/core/telegram"
	"github.com/m3rciful/woofinder/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/woofinder/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute answers every button press and routes it to the dispatcher.
// Action tokens and scene step buttons share the one endpoint.
func CallbackRoute(d Dispatcher) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		respond(c)

		key := callbacks.CallbackKey(c)
		return dispatchHandler(d, handlerName("callback", key), slog.String("cb_key", key))(c)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  wrap(handler),
	}
}

// respond clears the button's loading state. Failures are only logged.
func respond(c tele.Context) {
	if err := c.Respond(); err != nil {
		logger.Debug(tghelpers.BuildContext(c), "tg", "callback.respond",
			slog.String("status", "fail"),
			logger.Err(err),
		)
	}
}
