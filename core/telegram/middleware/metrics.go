package middleware

import (
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/metrics"
)

const (
	keyMessages = "messages"
	keyKeyboard = "kb"
	keyOutcome  = "outcome"
	keyFrom     = "state_from"
	keyTo       = "state_to"
)

// metricsContext wraps tele.Context to count sent messages and detect keyboard usage.
type metricsContext struct{ tele.Context }

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// Send proxies tele.Context.Send while updating message counters.
func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		AddCounters(m.Context, 1, hasKeyboard(opts))
	}
	return err
}

// Reply proxies tele.Context.Reply while updating message counters.
func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		AddCounters(m.Context, 1, hasKeyboard(opts))
	}
	return err
}

// MessageMetricsMiddleware resets the per-update counters, wraps the context
// so direct sends are counted, and records the update in Prometheus.
func MessageMetricsMiddleware(m *metrics.Metrics) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			c.Set(keyMessages, 0)
			c.Set(keyKeyboard, false)

			err := next(metricsContext{Context: c})

			outcome := "ok"
			if err != nil {
				outcome = "fail"
			} else if o, ok := c.Get(keyOutcome).(string); ok && o != "" {
				outcome = o
			}
			m.ObserveUpdate(UpdateKind(c.Update()), outcome, time.Since(start))
			return err
		}
	}
}

// AddCounters adds messages sent on behalf of the update. Handlers that send
// through the Bot directly report their sends here.
func AddCounters(c tele.Context, messages int, kb bool) {
	n, _ := c.Get(keyMessages).(int)
	c.Set(keyMessages, n+messages)
	if kb {
		c.Set(keyKeyboard, true)
	}
}

// SetOutcome records the domain outcome of the update (ok, reprompt, denied).
func SetOutcome(c tele.Context, outcome string) {
	c.Set(keyOutcome, outcome)
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get(keyMessages).(int)
	kb, _ := c.Get(keyKeyboard).(bool)
	return msgs, kb
}

// GetOutcome reads the outcome set by SetOutcome.
func GetOutcome(c tele.Context) string {
	o, _ := c.Get(keyOutcome).(string)
	return o
}

// SetTransition records the conversation state before and after the update.
func SetTransition(c tele.Context, from, to string) {
	c.Set(keyFrom, from)
	c.Set(keyTo, to)
}

// GetTransition reads the states recorded by SetTransition.
func GetTransition(c tele.Context) (from, to string) {
	from, _ = c.Get(keyFrom).(string)
	to, _ = c.Get(keyTo).(string)
	return from, to
}
