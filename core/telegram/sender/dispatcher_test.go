package sender

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/woofinder/core/metrics"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func newTestDispatcher(t *testing.T, m *metrics.Metrics) *Dispatcher {
	t.Helper()
	d := NewDispatcher(Options{
		QueueSize:    4,
		Workers:      1,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		MaxDuration:  time.Second,
		Metrics:      m,
	})
	t.Cleanup(d.Close)
	return d
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	m, err := metrics.New()
	require.NoError(t, err)
	d := newTestDispatcher(t, m)

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "notify", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return timeoutErr{}
		}
		return nil
	}))
	d.Close()

	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, d.ErrorCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SenderJobs.WithLabelValues("notify", "ok")))
}

func TestDispatcherGivesUpOnPermanentErrors(t *testing.T) {
	m, err := metrics.New()
	require.NoError(t, err)
	d := newTestDispatcher(t, m)

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "notify", "sendMessage", func() error {
		calls.Add(1)
		return errors.New("Forbidden: bot was blocked by the user")
	}))
	d.Close()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), d.ErrorCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SenderJobs.WithLabelValues("notify", "fail")))
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := newTestDispatcher(t, nil)
	d.Close()

	err := d.Enqueue(context.Background(), "notify", "sendMessage", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.Error(t, d.Enqueue(context.Background(), "notify", "sendMessage", nil))
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Workers: 1, MaxDuration: time.Second})
	release := make(chan struct{})
	started := make(chan struct{})
	t.Cleanup(func() {
		close(release)
		d.Close()
	})

	require.NoError(t, d.Enqueue(context.Background(), "a", "", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "b", "", func() error { return nil }))

	err := d.Enqueue(context.Background(), "c", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)
}
