package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/woofinder/core/logger"
)

// Seeder loads reference data into the services built by a ServiceProvider.
type Seeder[T any] interface {
	Seed(ctx context.Context, services T) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc[T any] func(ctx context.Context, services T) error

// Seed executes the underlying function.
func (f SeederFunc[T]) Seed(ctx context.Context, services T) error {
	return f(ctx, services)
}

// ServiceProvider builds application services on top of bootstrapped infrastructure.
type ServiceProvider[T any] func(ctx context.Context, infra *Result) (T, error)

// Modules groups the hooks run once infrastructure is up.
type Modules[T any] struct {
	Services ServiceProvider[T]
	Seeders  []Seeder[T]
}

// Wire builds the services and runs every seeder against them, in order.
func Wire[T any](ctx context.Context, infra *Result, mods Modules[T]) (T, error) {
	var zero T
	if mods.Services == nil {
		return zero, fmt.Errorf("bootstrap: no service provider")
	}
	services, err := mods.Services(ctx, infra)
	if err != nil {
		return zero, fmt.Errorf("bootstrap: services: %w", err)
	}
	for i, s := range mods.Seeders {
		start := time.Now()
		if err := s.Seed(ctx, services); err != nil {
			logger.Error(ctx, "seed", "seed.run",
				slog.String("status", "fail"),
				slog.Int("seeder", i),
				logger.Err(err),
			)
			return zero, fmt.Errorf("bootstrap: seeder %d: %w", i, err)
		}
		logger.Debug(ctx, "seed", "seed.run",
			slog.String("status", "ok"),
			slog.Int("seeder", i),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return services, nil
}
