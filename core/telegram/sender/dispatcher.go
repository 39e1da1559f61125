// Package sender runs outbound Telegram calls on a small worker pool so
// notifications to other users never block the update that caused them.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/metrics"
	"github.com/m3rciful/woofinder/core/telegram/netutil"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the job did not fit in the queue.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options size the queue and bound retries. Zero values pick defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration caps the total time one job may spend retrying.
	MaxDuration time.Duration
	Metrics     *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

func (j job) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

// Dispatcher executes queued sends with linear backoff between retries.
type Dispatcher struct {
	opts Options

	mu     sync.RWMutex
	closed bool
	jobs   chan job

	wg     sync.WaitGroup
	failed atomic.Uint64
}

// NewDispatcher starts opts.Workers goroutines reading from the queue.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue queues run without waiting. run may be called more than once, so
// it has to be safe to repeat.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount is the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// Close rejects new jobs and waits until the queued ones are done.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(j job) {
	start := time.Now()
	logger.Debug(j.ctx, component, "send.start", j.attrs()...)

	attempts, err := d.attempt(j)
	attrs := append(j.attrs(),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		d.failed.Add(1)
		d.opts.Metrics.RecordSenderJob(j.action, "fail")
		logger.Error(j.ctx, component, "send.fail", append(attrs,
			slog.String("err", redactToken(err.Error())),
			slog.String("error_kind", classifyError(err)),
		)...)
		return
	}
	d.opts.Metrics.RecordSenderJob(j.action, "ok")
	if attempts > 1 {
		logger.Info(j.ctx, component, "send.retry.success", attrs...)
		return
	}
	logger.Debug(j.ctx, component, "send.success", attrs...)
}

// attempt calls j.run until it succeeds, fails permanently, runs out of
// retries or exceeds MaxDuration. It returns the number of calls made.
func (d *Dispatcher) attempt(j job) (int, error) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	limit := d.opts.MaxRetries + 1
	calls := 0
	for {
		if err := ctx.Err(); err != nil {
			return calls, err
		}
		calls++
		err := j.run()
		if err == nil {
			return calls, nil
		}
		if calls == limit || !netutil.ShouldRetry(err) {
			return calls, err
		}

		delay := max(d.opts.RetryBackoff*time.Duration(calls), netutil.RetryAfter(err))
		logger.Debug(j.ctx, component, "send.retry.backoff", append(j.attrs(),
			slog.Int("attempt", calls),
			slog.Duration("delay", delay),
		)...)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return calls, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}
