// Package app wires WooFinder together: storage, sessions, scenes, handlers
// and the Telegram transport.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/woofinder/bot/handlers"
	"github.com/m3rciful/woofinder/bot/scenes"
	"github.com/m3rciful/woofinder/bot/storage"
	"github.com/m3rciful/woofinder/bot/storage/memory"
	"github.com/m3rciful/woofinder/bot/storage/postgres"
	"github.com/m3rciful/woofinder/core/bootstrap"
	corecmd "github.com/m3rciful/woofinder/core/cmd"
	coreconfig "github.com/m3rciful/woofinder/core/config"
	coredatabase "github.com/m3rciful/woofinder/core/database"
	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/metrics"
	"github.com/m3rciful/woofinder/core/state"
	coretelegram "github.com/m3rciful/woofinder/core/telegram"
	"github.com/m3rciful/woofinder/core/telegram/router"
	tgsender "github.com/m3rciful/woofinder/core/telegram/sender"
	"github.com/m3rciful/woofinder/core/wizard"

	tele "gopkg.in/telebot.v4"
)

const msgSlowDown = "🐢 Easy there! Please wait a moment before sending more."

// Services are the stores everything else is built on.
type Services struct {
	Store    storage.Store
	Sessions state.Store
}

// App is a fully wired bot ready to run.
type App struct {
	cfg        *Config
	infra      *bootstrap.Result
	services   Services
	metrics    *metrics.Metrics
	engine     *wizard.Engine
	dispatcher *wizard.Dispatcher
	registry   *coretelegram.Registry
}

// Options override infrastructure hooks, mostly for tests.
type Options struct {
	LoggerInit func(*Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
}

// Bootstrap adapts New to cmd.Options.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(ctx, cfg, Options{})
}

// New brings up infrastructure, seeds the species catalogue and wires the
// scenes, handlers and dispatcher.
func New(ctx context.Context, cfg *Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}

	bopts := bootstrap.Options{
		Config:  &cfg.Config,
		Connect: opts.Connect,
		Migrate: opts.Migrate,
	}
	if opts.LoggerInit != nil {
		bopts.LoggerInit = func(*coreconfig.Config) error { return opts.LoggerInit(cfg) }
	}
	if cfg.NeedsDatabase() {
		bopts.Database = &cfg.Database
	}

	infra, err := bootstrap.Run(ctx, bopts)
	if err != nil {
		return nil, err
	}

	svcs, err := bootstrap.Wire(ctx, infra, bootstrap.Modules[Services]{
		Services: provideServices(cfg),
		Seeders:  []bootstrap.Seeder[Services]{bootstrap.SeederFunc[Services](seedSpecies)},
	})
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	a, err := assemble(cfg, svcs)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	a.infra = infra

	logger.Info(ctx, "app", "app.wired",
		slog.String("storage", cfg.Storage.Backend),
		slog.String("sessions", cfg.Sessions.Backend),
		slog.Int("triggers", len(a.dispatcher.Triggers())),
	)
	return a, nil
}

func assemble(cfg *Config, svcs Services) (*App, error) {
	m, err := metrics.New()
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	engine := wizard.NewEngine(svcs.Sessions, wizard.WithMetrics(m))
	deps := scenes.Deps{Store: svcs.Store, RadiusKm: cfg.Search.RadiusKm}
	if err := engine.Register(scenes.All(deps)...); err != nil {
		return nil, fmt.Errorf("app: scenes: %w", err)
	}

	h := handlers.New(svcs.Store)
	dopts := h.Options(cfg.Telegram.AdminID)
	dopts.Metrics = m
	dispatcher := wizard.NewDispatcher(engine, dopts)
	dispatcher.Use(handlers.EnsureUser(svcs.Store))
	if err := dispatcher.Register(h.Triggers()...); err != nil {
		return nil, fmt.Errorf("app: triggers: %w", err)
	}

	reg := coretelegram.NewRegistry()
	reg.RegisterTriggers(dispatcher.Triggers())

	return &App{
		cfg:        cfg,
		services:   svcs,
		metrics:    m,
		engine:     engine,
		dispatcher: dispatcher,
		registry:   reg,
	}, nil
}

func provideServices(cfg *Config) bootstrap.ServiceProvider[Services] {
	return func(_ context.Context, infra *bootstrap.Result) (Services, error) {
		if cfg.NeedsDatabase() && (infra == nil || infra.DB == nil) {
			return Services{}, errors.New("postgres backend selected without a database")
		}

		var svcs Services
		switch cfg.Storage.Backend {
		case BackendMemory:
			svcs.Store = memory.New()
		default:
			svcs.Store = postgres.New(infra.DB)
		}
		switch cfg.Sessions.Backend {
		case BackendMemory:
			svcs.Sessions = state.NewMemoryStore()
		default:
			svcs.Sessions = postgres.NewSessionStore(infra.DB)
		}
		return svcs, nil
	}
}

// seedSpecies makes sure the built-in species exist. The initial migration
// inserts the same rows; memory stores start empty.
func seedSpecies(ctx context.Context, svcs Services) error {
	seeder, ok := svcs.Store.(storage.SpeciesSeeder)
	if !ok {
		return nil
	}
	added, err := seeder.SeedSpecies(ctx, memory.DefaultSpecies()...)
	if err != nil {
		return fmt.Errorf("seed species: %w", err)
	}
	logger.Info(ctx, "seed", "species.seed",
		slog.String("status", "ok"),
		slog.Int("added", added),
	)
	return nil
}

// Store exposes the storage gateway.
func (a *App) Store() storage.Store { return a.services.Store }

// Dispatcher exposes the wizard dispatcher.
func (a *App) Dispatcher() *wizard.Dispatcher { return a.dispatcher }

// Registry exposes the Telegram command registry.
func (a *App) Registry() *coretelegram.Registry { return a.registry }

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := &a.cfg.Config
	return coretelegram.RunOptions{
		Config:   core,
		Registry: a.registry,
		DispatcherOptions: tgsender.Options{
			QueueSize:    core.Sender.QueueSize,
			Workers:      core.Sender.Workers,
			MaxRetries:   core.Sender.MaxRetries,
			RetryBackoff: time.Duration(core.Sender.RetryBackoffMS) * time.Millisecond,
		},
		Middlewares: coretelegram.DefaultMiddlewares(core, a.metrics, onLimited),
		Routes: router.Routes(a.registry, a.dispatcher, router.CommandRouteOptions{
			AdminID: core.Telegram.AdminID,
		}),
		Metrics: a.metrics,
		OnStop: func(context.Context, coretelegram.Runtime) error {
			a.dispatcher.Close()
			return nil
		},
	}, nil
}

// Close drains queued conversation events and releases the database, if any.
func (a *App) Close() error {
	a.dispatcher.Close()
	return a.infra.Close()
}

func onLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgSlowDown})
	}
	return c.Send(msgSlowDown)
}
