package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"log/slog"

	"github.com/m3rciful/schoolbot/core/logger"
	tghelpers "github.com/m3rciful/schoolbot/core/telegram/helpers"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the average spacing between updates of one user.
	Interval time.Duration
	// Burst is the number of updates accepted back to back; values below 1 mean 1.
	Burst     int
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// limiterPool hands out one token bucket per user.
type limiterPool struct {
	mu    sync.Mutex
	m     map[int64]*rate.Limiter
	every rate.Limit
	burst int
}

func newLimiterPool(interval time.Duration, burst int) *limiterPool {
	if burst < 1 {
		burst = 1
	}
	return &limiterPool{
		m:     make(map[int64]*rate.Limiter),
		every: rate.Every(interval),
		burst: burst,
	}
}

func (p *limiterPool) allow(userID int64) bool {
	p.mu.Lock()
	l, ok := p.m[userID]
	if !ok {
		l = rate.NewLimiter(p.every, p.burst)
		p.m[userID] = l
	}
	p.mu.Unlock()
	return l.Allow()
}

// RateLimitMiddleware drops updates of a user that arrive faster than the
// configured rate. Excluded update kinds always pass.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	pool := newLimiterPool(opts.Interval, opts.Burst)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[UpdateKind(c.Update())]; skip {
				return next(c)
			}
			if pool.allow(user.ID) {
				return next(c)
			}

			logger.TG.LogAttrs(tghelpers.BuildContext(c), slog.LevelWarn, "rate limit",
				slog.String("event", "tg.rate_limit"),
				slog.String("status", "rate_limited"),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
