package router

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/woofinder/core/logger"
	tghelpers "github.com/m3rciful/woofinder/core/telegram/helpers"
	"github.com/m3rciful/woofinder/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary is the one "handler.handled" line written per routed update.
type summary struct {
	handler string
	start   time.Time
	attrs   []slog.Attr
}

func newSummary(handler string, attrs ...slog.Attr) *summary {
	return &summary{handler: handler, start: time.Now(), attrs: attrs}
}

// finish logs the outcome of the handled update.
func (s *summary) finish(c tele.Context, err error) {
	status := "ok"
	if err != nil {
		status = "fail"
	}
	s.log(c, status, err)
}

func (s *summary) log(c tele.Context, status string, err error) {
	msgs, kb := middleware.GetCounters(c)
	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("handler", s.handler),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(s.start)),
	}, s.attrs...)
	if err != nil {
		attrs = append(attrs, logger.Err(err), slog.String("err_code", errorCode(err)))
	}
	logger.LogEvent(tghelpers.WithHandler(c, s.handler), logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

// handlerName turns a command or callback key into a log-friendly name.
func handlerName(prefix, key string) string {
	key = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "/"))
	if key == "" {
		key = "unknown"
	}
	return prefix + "." + strings.ReplaceAll(key, " ", "_")
}

// errorCode is the error's own Code() when it has one, else its type name.
func errorCode(err error) string {
	if c, ok := err.(interface{ Code() string }); ok {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(name)
}
