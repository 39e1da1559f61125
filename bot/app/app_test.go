package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/woofinder/bot/handlers"
	coreconfig "github.com/m3rciful/woofinder/core/config"
	coredatabase "github.com/m3rciful/woofinder/core/database"
	"github.com/m3rciful/woofinder/core/wizard/wizardtest"
)

func memoryConfig() *Config {
	cfg := &Config{
		Config: coreconfig.Config{
			Telegram: coreconfig.TelegramConfig{Token: "123:abc", AdminID: 42},
		},
		Storage:  BackendConfig{Backend: BackendMemory},
		Sessions: BackendConfig{Backend: BackendMemory},
	}
	return cfg
}

func noLogger(*Config) error { return nil }

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 42
database:
  host: db
  name: woofinder
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, int64(42), cfg.CoreConfig().Telegram.AdminID)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, BackendPostgres, cfg.Sessions.Backend)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.InDelta(t, 0.5, cfg.Search.RadiusKm, 1e-9)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "999:env")
	t.Setenv("SEARCH_RADIUS_KM", "2.5")
	path := writeConfig(t, `
telegram:
  token: "123:abc"
storage:
  backend: memory
sessions:
  backend: MEMORY
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "999:env", cfg.Telegram.Token)
	assert.InDelta(t, 2.5, cfg.Search.RadiusKm, 1e-9)
	assert.Equal(t, BackendMemory, cfg.Sessions.Backend)
	assert.False(t, cfg.NeedsDatabase())
}

func TestNormalizeErrors(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown backend": func(c *Config) { c.Storage.Backend = "mongo" },
		"missing db host": func(c *Config) { c.Sessions.Backend = BackendPostgres },
		"negative radius": func(c *Config) { c.Search.RadiusKm = -1 },
		"missing token":   func(c *Config) { c.Telegram.Token = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := memoryConfig()
			mutate(cfg)
			assert.Error(t, cfg.Normalize())
		})
	}
}

func TestNewWiresMemoryBackends(t *testing.T) {
	cfg := memoryConfig()
	require.NoError(t, cfg.Normalize())

	a, err := New(context.Background(), cfg, Options{LoggerInit: noLogger})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	species, err := a.Store().ListSpecies(context.Background())
	require.NoError(t, err)
	assert.Len(t, species, 2)

	_, stats, ok := a.Registry().LookupCommand(handlers.CmdStats)
	require.True(t, ok)
	assert.True(t, stats.AdminOnly)

	var visible []string
	for _, c := range a.Registry().ListCommands(true) {
		visible = append(visible, c.Text)
	}
	assert.Equal(t, []string{"pets", "reports", "start"}, visible)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, &cfg.Config, opts.Config)
	assert.NotNil(t, opts.Metrics)
	assert.Len(t, opts.Routes, 4+1+5)
}

func TestNewDispatchesEndToEnd(t *testing.T) {
	cfg := memoryConfig()
	require.NoError(t, cfg.Normalize())
	a, err := New(context.Background(), cfg, Options{LoggerInit: noLogger})
	require.NoError(t, err)

	conv := wizardtest.NewConversation(7, "Ann")
	require.NoError(t, a.Dispatcher().Dispatch(context.Background(), conv.Command(handlers.CmdStart)))
	assert.Contains(t, conv.Out.LastText(), "Hey <b>Ann</b>!")

	u, err := a.Store().GetUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.FirstName)
}

func TestNewPostgresConnectFailure(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.Backend = BackendPostgres
	cfg.Database = coredatabase.Config{Host: "db", Name: "woofinder"}
	require.NoError(t, cfg.Normalize())

	boom := errors.New("connection refused")
	_, err := New(context.Background(), cfg, Options{
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return nil, boom
		},
	})
	require.ErrorIs(t, err, boom)
}

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(context.Background(), foreignConfig{})
	assert.Error(t, err)
}

type foreignConfig struct{}

func (foreignConfig) CoreConfig() *coreconfig.Config { return &coreconfig.Config{} }
