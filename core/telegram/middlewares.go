package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/woofinder/core/config"
	"github.com/m3rciful/woofinder/core/metrics"
	"github.com/m3rciful/woofinder/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares is the bot-wide chain in order: recover, the per-user
// rate limit when configured, update logging and reply metrics.
func DefaultMiddlewares(cfg *coreconfig.Config, m *metrics.Metrics, onLimited tele.HandlerFunc) []Middleware {
	chain := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}
	if limit, ok := rateLimit(cfg, onLimited); ok {
		chain = append(chain, Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(limit)})
	}
	return append(chain,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware(m)},
	)
}

func rateLimit(cfg *coreconfig.Config, onLimited tele.HandlerFunc) (middleware.RateLimitOptions, bool) {
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return middleware.RateLimitOptions{}, false
	}
	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[strings.ToLower(strings.TrimSpace(kind))] = struct{}{}
	}
	return middleware.RateLimitOptions{
		Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		Exclude:   exclude,
		OnLimited: onLimited,
	}, true
}
