package telegram

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/woofinder/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// allowedUpdates lists the update kinds the bot consumes. Everything a scene
// can react to arrives as a message or a callback query.
var allowedUpdates = []string{"message", "callback_query"}

// LongPollTimeout returns the configured long polling timeout or the default.
func LongPollTimeout(cfg *coreconfig.Config) time.Duration {
	if cfg == nil || cfg.Telegram.LongPollTimeoutSeconds <= 0 {
		return defaultLongPollTimeout
	}
	return time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second
}

// BuildPoller returns a webhook or long poller according to cfg.Telegram.RunMode.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if strings.EqualFold(strings.TrimSpace(cfg.Telegram.RunMode), coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:         fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
			AllowedUpdates: allowedUpdates,
		}
	}
	return &tele.LongPoller{
		Timeout:        LongPollTimeout(cfg),
		AllowedUpdates: allowedUpdates,
	}
}
