// Package sender runs outbound Telegram calls on a bounded worker pool so
// update handlers never block on the network.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

const component = "tg.sender"

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single job, retries included.
	MaxDuration time.Duration
	// OnFailure observes jobs that were given up on.
	OnFailure func(action, kind string)
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes queued Telegram calls with retries.
type Dispatcher struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	errs   atomic.Uint64
}

// NewDispatcher starts the workers; zero options get defaults.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{opts: opts, jobs: make(chan job, opts.QueueSize)}
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

// Enqueue schedules run for asynchronous execution. run may be invoked more
// than once when the call fails with a retryable error.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
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

// ErrorCount returns the number of jobs that were given up on.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close drains the queue and waits for the workers to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			attrs := jobAttrs(j, start)
			if attempt > 1 {
				attrs = append(attrs, slog.Int("attempt", attempt))
			}
			logger.Debug(ctx, component, "send.ok", attrs...)
			return
		}
		if attempt == attempts || !netutil.Retryable(err) {
			break
		}

		delay := netutil.Backoff(err, attempt, d.opts.RetryBackoff)
		logger.Debug(ctx, component, "send.retry",
			append(jobAttrs(j, start),
				slog.String("status", "retry"),
				slog.Int("attempt", attempt),
				slog.String("error_kind", netutil.Kind(err)),
				slog.Duration("delay", delay),
			)...,
		)
		if !sleep(runCtx, delay) {
			err = errors.Join(err, runCtx.Err())
			break
		}
	}
	d.fail(ctx, j, err, start)
}

func (d *Dispatcher) fail(ctx context.Context, j job, err error, start time.Time) {
	d.errs.Add(1)
	kind := netutil.Kind(err)
	if d.opts.OnFailure != nil {
		d.opts.OnFailure(j.action, kind)
	}

	attrs := append(jobAttrs(j, start),
		slog.String("status", "fail"),
		slog.String("error_kind", kind),
		slog.String("err", netutil.Redact(err)),
	)
	// A 4xx is usually a message that is already gone or a chat that
	// blocked the bot.
	if code := netutil.StatusCode(err); code >= 400 && code < 500 && kind != "flood" {
		logger.Warn(ctx, component, "send.fail", append(attrs, slog.Int("http_status", code))...)
		return
	}
	logger.Error(ctx, component, "send.fail", attrs...)
}

func jobAttrs(j job, start time.Time) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return append(attrs, slog.Duration("duration", logger.Took(start)))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
