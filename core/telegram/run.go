package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/woofinder/core/config"
	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/metrics"
	tghelpers "github.com/m3rciful/woofinder/core/telegram/helpers"
	tgsender "github.com/m3rciful/woofinder/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a bot-wide middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds Handler to an endpoint accepted by tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions is everything RunTelegram needs to bring a bot up.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// DispatcherOptions configure the outbound queue unless Dispatcher is set.
	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route
	// Metrics is served on cfg.Metrics.Listen while the bot runs.
	Metrics *metrics.Metrics

	// KeepWebhook skips removing a stale webhook before long polling.
	KeepWebhook bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is handed to the lifecycle hooks.
type Runtime struct {
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram starts the bot and blocks until ctx is cancelled or the poller
// stops. Cancellation is a clean shutdown and returns nil.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	cfg := opts.Config
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	bot, err := newBot(ctx, cfg)
	if err != nil {
		return err
	}

	rt := Runtime{Dispatcher: opts.Dispatcher, Registry: opts.Registry}
	if rt.Dispatcher == nil {
		dopts := opts.DispatcherOptions
		if dopts.Metrics == nil {
			dopts.Metrics = opts.Metrics
		}
		rt.Dispatcher = tgsender.NewDispatcher(dopts)
	}
	tghelpers.SetDispatcher(rt.Dispatcher)
	defer func() {
		rt.Dispatcher.Close()
		tghelpers.SetDispatcher(nil)
	}()

	if _, webhook := bot.Poller.(*tele.Webhook); !webhook && !opts.KeepWebhook {
		removeWebhook(ctx, bot)
	}
	install(bot, opts)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	if opts.Metrics != nil && cfg.Metrics.Listen != "" {
		go func() {
			if err := opts.Metrics.Serve(metricsCtx, cfg.Metrics.Listen, cfg.Metrics.Path); err != nil {
				logger.Error(ctx, "metrics", "metrics.serve", slog.String("status", "fail"), logger.Err(err))
			}
		}()
	}

	runErr := serve(ctx, bot)
	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func newBot(ctx context.Context, cfg *coreconfig.Config) (*tele.Bot, error) {
	start := time.Now()
	poller := BuildPoller(cfg)
	bot, err := tele.NewBot(botSettings(cfg, poller))
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	attrs := []slog.Attr{slog.Duration("duration", time.Since(start))}
	if wh, ok := poller.(*tele.Webhook); ok {
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		)
	} else {
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Int("timeout_seconds", int(LongPollTimeout(cfg)/time.Second)),
		)
	}
	logger.Info(ctx, "tg", "bot.mode", attrs...)
	return bot, nil
}

// botSettings runs handlers on the update loop so routes see updates in poll
// order; they hand the work to per-conversation queues.
func botSettings(cfg *coreconfig.Config, poller tele.Poller) tele.Settings {
	return tele.Settings{
		Token:       cfg.Telegram.Token,
		Poller:      poller,
		Client:      BuildHTTPClient(LongPollTimeout(cfg)),
		Synchronous: true,
		OnError:     logHandlerError,
	}
}

func logHandlerError(err error, c tele.Context) {
	ctx := logger.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "handler.error", slog.String("status", "fail"), logger.Err(err))
}

// removeWebhook clears a webhook left by an earlier deployment; Telegram
// refuses getUpdates while one is set.
func removeWebhook(ctx context.Context, bot *tele.Bot) {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.Warn(ctx, "tg", "webhook.delete", slog.String("status", "fail"), logger.Err(err))
		return
	}
	logger.Info(ctx, "tg", "webhook.delete", slog.String("status", "ok"))
}

func install(bot *tele.Bot, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	SetupCommands(bot, opts.Registry)
}

// serve runs the poller until it stops on its own or ctx is done.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	}
}
