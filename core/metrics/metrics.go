// Package metrics exposes Prometheus counters for the wizard engine, the
// dispatcher and the outbound sender. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/woofinder/core/logger"
)

const namespace = "woofinder"

// Metrics holds every collector the bot reports.
type Metrics struct {
	registry *prometheus.Registry

	// Wizard engine
	SceneEntries *prometheus.CounterVec
	Transitions  *prometheus.CounterVec
	StepErrors   *prometheus.CounterVec

	// Dispatcher
	Dispatched       *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec

	// Outbound
	MessagesSent *prometheus.CounterVec
	SenderJobs   *prometheus.CounterVec
}

// New creates the collectors and registers them on a private registry
// together with the Go runtime and process collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		SceneEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wizard",
			Name:      "scene_entries_total",
			Help:      "Number of times a wizard scene was entered",
		}, []string{"scene", "status"}),

		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wizard",
			Name:      "transitions_total",
			Help:      "Step transitions applied by the wizard engine",
		}, []string{"scene", "transition"}), // transition: next, back, select, reenter, leave

		StepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wizard",
			Name:      "step_errors_total",
			Help:      "Step handler failures; the session is kept at the failing step",
		}, []string{"scene", "step"}),

		Dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "events_total",
			Help:      "Inbound chat events by kind and outcome",
		}, []string{"kind", "outcome"}),

		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time spent handling one inbound event",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),

		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "messages_sent_total",
			Help:      "Messages sent to users, split by keyboard presence",
		}, []string{"keyboard"}),

		SenderJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "jobs_total",
			Help:      "Asynchronous send jobs by action and final status",
		}, []string{"action", "status"}),
	}

	collectorsToRegister := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SceneEntries,
		m.Transitions,
		m.StepErrors,
		m.Dispatched,
		m.DispatchDuration,
		m.MessagesSent,
		m.SenderJobs,
	}
	for _, c := range collectorsToRegister {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// Registry returns the private registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordSceneEntry counts an Enter call.
func (m *Metrics) RecordSceneEntry(scene string, err error) {
	if m == nil {
		return
	}
	m.SceneEntries.WithLabelValues(scene, logger.Status(err)).Inc()
}

// RecordTransition counts a transition applied to a session.
func (m *Metrics) RecordTransition(scene, transition string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(scene, transition).Inc()
}

// RecordStepError counts a failed step run.
func (m *Metrics) RecordStepError(scene, step string) {
	if m == nil {
		return
	}
	m.StepErrors.WithLabelValues(scene, step).Inc()
}

// RecordDispatch counts a handled inbound event and observes its latency.
func (m *Metrics) RecordDispatch(kind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.Dispatched.WithLabelValues(kind, outcome).Inc()
	m.DispatchDuration.WithLabelValues(kind).Observe(took.Seconds())
}

// RecordMessages counts messages sent while handling one update.
func (m *Metrics) RecordMessages(n int, keyboard bool) {
	if m == nil || n <= 0 {
		return
	}
	label := "no"
	if keyboard {
		label = "yes"
	}
	m.MessagesSent.WithLabelValues(label).Add(float64(n))
}

// RecordSenderJob counts a finished asynchronous send.
func (m *Metrics) RecordSenderJob(action, status string) {
	if m == nil {
		return
	}
	m.SenderJobs.WithLabelValues(action, status).Inc()
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve runs an HTTP listener for the metrics endpoint until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, listen, path string) error {
	if m == nil || listen == "" {
		return nil
	}
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "metrics", "metrics.listen", slog.String("listen", listen), slog.String("op", path))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics listen %s: %w", listen, err)
	}
}
