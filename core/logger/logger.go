package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/woofinder/core/buildinfo"
	coreconfig "github.com/m3rciful/woofinder/core/config"
)

const (
	defaultSampleKeep   = 1
	defaultSampleWindow = 50
	sinkBufferSize      = 64 * 1024
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	closed   bool

	out   *asyncWriter
	files []io.Closer

	level   slog.LevelVar
	sampler = newRatioSampler(defaultSampleKeep, defaultSampleWindow)
	// TRACE=1 in the environment disables debug sampling.
	traceAll bool

	// L is the base logger. Component scopes it per call site.
	L *slog.Logger
)

// settings is the logging section of the config resolved to concrete values.
type settings struct {
	format   logFormat
	keyOrder []string
	level    slog.Level
	keep     int
	window   int
	profile  string
	filePath string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{
		format:   formatJSON,
		keyOrder: append([]string(nil), defaultKeyOrder...),
		level:    slog.LevelInfo,
		keep:     defaultSampleKeep,
		window:   defaultSampleWindow,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	s.profile = strings.ToLower(strings.TrimSpace(lc.Profile))
	if s.profile == "" {
		s.profile = "prod"
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.keyOrder = order
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		s.keep, s.window = parseRatioSpec(spec)
	}

	dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir != "" && file != "" {
		s.filePath = filepath.Join(dir, file)
	}
	return s
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// InitLogger builds L from cfg and makes it the slog default. Only the first
// call has any effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		err = setup(resolve(cfg))
	})
	return err
}

func setup(s settings) error {
	level.Set(s.level)
	sampler.Set(s.keep, s.window)
	traceAll = envFlag("TRACE") || envFlag("LOG_TRACE")

	sinks := []io.Writer{os.Stdout}
	var fileErr error
	if s.filePath != "" {
		f, err := openLogFile(s.filePath)
		if err != nil {
			fileErr = err
		} else {
			sinks = append(sinks, f)
			files = append(files, f)
		}
	}
	out = newAsyncWriter(sinks, sinkBufferSize)

	L = slog.New(newStructuredHandler(handlerConfig{
		level:    &level,
		writer:   out,
		format:   s.format,
		keyOrder: s.keyOrder,
	}))
	slog.SetDefault(L)

	Info(context.Background(), "app", "startup",
		slog.String("go_version", runtime.Version()),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
	)
	// A missing log file is not fatal; stdout still works.
	if fileErr != nil {
		Warn(context.Background(), "app", "log.file", Err(fileErr))
	}
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Shutdown flushes pending lines and closes log files. Later calls are no-ops.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if out != nil {
		errs = append(errs, out.Close())
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// Background is context.Background for call sites outside an update.
func Background() context.Context {
	return context.Background()
}

// LogEvent writes one event line through logg, falling back to the context
// logger and then L.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(orBackground(ctx), lvl, "", attrs...)
}

// Component returns L tagged with component, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name != "" {
		return L.With("component", name)
	}
	return L
}

// Event logs an event for component at lvl.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	logg := Component(component)
	if logg == nil {
		if logg = FromContext(ctx); logg != nil && strings.TrimSpace(component) != "" {
			logg = logg.With("component", strings.TrimSpace(component))
		}
	}
	LogEvent(ctx, logg, lvl, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be written.
func ShouldSampleDebug() bool {
	return traceAll || sampler.Allow()
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
