package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/logger"
	tg "github.com/m3rciful/schoolbot/core/telegram"
	"github.com/m3rciful/schoolbot/core/telegram/middleware"
)

// CommandRoutes prepares command handlers wrapped with shared middleware.
// Every alias gets its own route bound to the same handler.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := commandHandler(cmd, def.Handler)
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}

func commandHandler(name string, next tele.HandlerFunc) tele.HandlerFunc {
	handlerName := "command." + normalizeHandlerName(name)
	h := func(c tele.Context) error {
		return newSummary(handlerName).run(c, func() error { return next(c) })
	}
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}
