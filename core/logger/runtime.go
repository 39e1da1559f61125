package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type ctxKey int

const (
	keyLogger ctxKey = iota
	keyRID
	keyUpdate
	keyHandler
	keyScene
)

// updateMeta identifies the Telegram update a context was derived from.
type updateMeta struct {
	updateID int
	userID   int64
	chatID   int64
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func withValue(ctx context.Context, key ctxKey, v any) context.Context {
	return context.WithValue(orBackground(ctx), key, v)
}

func valueOf[T any](ctx context.Context, key ctxKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	v, ok := ctx.Value(key).(T)
	if !ok {
		return zero
	}
	return v
}

// WithLogger stores log in ctx so LogEvent can pick it up without a component.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		return orBackground(ctx)
	}
	return withValue(ctx, keyLogger, log)
}

// FromContext returns the logger stored by WithLogger, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if l := valueOf[*slog.Logger](ctx, keyLogger); l != nil {
		return l
	}
	return L
}

// WithRID attaches the correlation id of the current update.
func WithRID(ctx context.Context, rid string) context.Context {
	return withValue(ctx, keyRID, rid)
}

// RIDFrom returns the correlation id, if any.
func RIDFrom(ctx context.Context) string {
	return valueOf[string](ctx, keyRID)
}

// WithUpdateMeta attaches the update, user and chat ids.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withValue(ctx, keyUpdate, updateMeta{updateID: updateID, userID: userID, chatID: chatID})
}

// UpdateIDFrom returns the Telegram update id, or zero.
func UpdateIDFrom(ctx context.Context) int {
	return valueOf[updateMeta](ctx, keyUpdate).updateID
}

// UserIDFrom returns the Telegram user id, or zero.
func UserIDFrom(ctx context.Context) int64 {
	return valueOf[updateMeta](ctx, keyUpdate).userID
}

// ChatIDFrom returns the Telegram chat id, or zero.
func ChatIDFrom(ctx context.Context) int64 {
	return valueOf[updateMeta](ctx, keyUpdate).chatID
}

// WithHandler names the route or trigger handling the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return orBackground(ctx)
	}
	return withValue(ctx, keyHandler, handler)
}

// HandlerFrom returns the handler name stored by WithHandler.
func HandlerFrom(ctx context.Context) string {
	return valueOf[string](ctx, keyHandler)
}

// WithScene records the active wizard scene so every log line of a turn carries it.
func WithScene(ctx context.Context, scene string) context.Context {
	if scene == "" {
		return orBackground(ctx)
	}
	return withValue(ctx, keyScene, scene)
}

// SceneFrom returns the wizard scene stored by WithScene.
func SceneFrom(ctx context.Context) string {
	return valueOf[string](ctx, keyScene)
}

// Sanitize drops control and format runes except tab and newline.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit applies Sanitize and cuts the result to limit runes.
func SanitizeLimit(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = Sanitize(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// BuildRID returns a correlation identifier in the format updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID renders each segment of a BuildRID value in base36, joined by
// dots. Anything else is returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}
