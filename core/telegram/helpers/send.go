package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// Dispatch runs fn on the sender worker pool. Without a dispatcher, or when
// its queue cannot take the job, fn runs synchronously.
func Dispatch(ctx context.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// Answer acknowledges the callback query of c through the dispatcher. A
// response with empty text is sent as a bare acknowledgement.
func Answer(c tele.Context, resp ...*tele.CallbackResponse) error {
	if c.Callback() == nil {
		return nil
	}
	if len(resp) > 0 && resp[0] != nil && resp[0].Text == "" {
		resp = nil
	}
	return Dispatch(BuildContext(c), "callback.answer", "answerCallbackQuery", func() error {
		return c.Respond(resp...)
	})
}
