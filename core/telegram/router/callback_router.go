package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/schoolbot/core/telegram"
	"github.com/m3rciful/schoolbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/schoolbot/core/telegram/helpers"
	"github.com/m3rciful/schoolbot/core/telegram/middleware"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	// NotFound handles keys nothing is registered for.
	NotFound tele.HandlerFunc
	// Expired is shown to the user when a key is unknown and NotFound is nil.
	Expired string
}

// CallbackRoute answers every callback query and hands it to the handler
// registered for its key.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		key, _ := callbacks.ParseCallbackData(cb)
		s := newSummary("callback."+normalizeHandlerName(key)).with(slog.String("cb_key", key))

		next, ok := reg.GetCallback(key)
		if !ok {
			s.with(slog.String("reason", "not_found"))
			next = opts.NotFound
		}

		// A failed answer only leaves the client spinner running.
		if next == nil {
			_ = tghelpers.Answer(c, &tele.CallbackResponse{Text: opts.Expired})
			s.skip(c)
			return nil
		}
		_ = tghelpers.Answer(c)
		return s.run(c, func() error { return next(c) })
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
