package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/woofinder/core/logger"
	tg "github.com/m3rciful/woofinder/core/telegram"
	"github.com/m3rciful/woofinder/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds each registered command to the dispatcher, wrapped with
// shared middleware. Admin-only commands are rejected before dispatch.
func CommandRoutes(reg *tg.Registry, d Dispatcher, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOpts := middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := dispatchHandler(d, handlerName("command", cmd))
		if def.AdminOnly {
			h = middleware.AdminOnlyMiddleware(adminOpts)(h)
		}
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  wrap(h),
		})
	}

	logger.Info(context.Background(), "tg.wire", "routes.commands",
		slog.String("status", "ok"),
		slog.Int("commands", len(routes)),
	)

	return routes
}

// Routes returns every route the bot needs: commands, button presses and
// each message kind.
func Routes(reg *tg.Registry, d Dispatcher, opts CommandRouteOptions) []tg.Route {
	routes := CommandRoutes(reg, d, opts)
	routes = append(routes, CallbackRoute(d))
	return append(routes, MessageRoutes(d)...)
}
