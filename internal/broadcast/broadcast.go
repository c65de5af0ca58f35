// Package broadcast fans announcements out to every subscriber.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/metrics"
	"github.com/m3rciful/schoolbot/core/telegram/netutil"
	"github.com/m3rciful/schoolbot/internal/channel"
	"github.com/m3rciful/schoolbot/internal/storage"
)

// Options tune the distributor.
type Options struct {
	// PerSecond caps sends per second; 0 disables pacing.
	PerSecond float64
	Metrics   *metrics.Metrics
}

// Distributor delivers one message to each subscriber in turn.
type Distributor struct {
	subs    storage.SubscriberStore
	client  channel.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// New returns a distributor.
func New(subs storage.SubscriberStore, client channel.Client, opts Options) *Distributor {
	limit := rate.Inf
	if opts.PerSecond > 0 {
		limit = rate.Limit(opts.PerSecond)
	}
	return &Distributor{
		subs:    subs,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		metrics: opts.Metrics,
	}
}

// Broadcast sends content to every subscriber and returns how many received
// it. A subscriber whose delivery fails is removed and not counted; one
// failure never stops the others. When ctx ends the loop stops, the
// remaining subscribers are kept, and the count so far is returned with the
// context error.
func (d *Distributor) Broadcast(ctx context.Context, content channel.Content) (int, error) {
	start := time.Now()
	ids, err := d.subs.ListSubscribers(ctx)
	if err != nil {
		return 0, fmt.Errorf("broadcast: %w", err)
	}

	var delivered, pruned int
	for _, id := range ids {
		if err := d.limiter.Wait(ctx); err != nil {
			return delivered, d.stopped(ctx, delivered, len(ids), err)
		}
		if err := d.deliver(ctx, id, content); err != nil {
			if ctx.Err() != nil {
				return delivered, d.stopped(ctx, delivered, len(ids), ctx.Err())
			}
			d.metrics.Delivery(false)
			pruned++
			if rmErr := d.subs.RemoveSubscriber(ctx, id); rmErr != nil {
				logger.LogEvent(ctx, logger.SVCBroadcast, slog.LevelWarn, "broadcast.prune",
					slog.String("status", "fail"),
					slog.Int64("subscriber", id),
					slog.String("err", rmErr.Error()),
				)
				continue
			}
			logger.LogEvent(ctx, logger.SVCBroadcast, slog.LevelDebug, "broadcast.prune",
				slog.String("status", "ok"),
				slog.Int64("subscriber", id),
				slog.String("cause", logger.SanitizeLimit(netutil.Redact(err), 128)),
			)
			continue
		}
		d.metrics.Delivery(true)
		delivered++
	}

	logger.LogEvent(ctx, logger.SVCBroadcast, slog.LevelInfo, "broadcast.done",
		slog.String("status", "ok"),
		slog.Int("subscribers", len(ids)),
		slog.Int("delivered", delivered),
		slog.Int("pruned", pruned),
		slog.Duration("duration", logger.Took(start)),
	)
	return delivered, nil
}

// deliver sends content to one subscriber. A flood control reply is waited
// out once before the delivery counts as failed.
func (d *Distributor) deliver(ctx context.Context, id int64, content channel.Content) error {
	_, err := d.client.Send(ctx, channel.Chat(id), content)
	wait, flood := netutil.RetryAfter(err)
	if !flood {
		return err
	}
	logger.LogEvent(ctx, logger.SVCBroadcast, slog.LevelWarn, "broadcast.flood",
		slog.String("status", "rate_limited"),
		slog.Int64("subscriber", id),
		slog.Duration("retry_after", wait),
	)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	_, err = d.client.Send(ctx, channel.Chat(id), content)
	return err
}

func (d *Distributor) stopped(ctx context.Context, delivered, total int, err error) error {
	logger.LogEvent(ctx, logger.SVCBroadcast, slog.LevelWarn, "broadcast.done",
		slog.String("status", "cancelled"),
		slog.Int("subscribers", total),
		slog.Int("delivered", delivered),
	)
	return fmt.Errorf("broadcast interrupted: %w", err)
}
