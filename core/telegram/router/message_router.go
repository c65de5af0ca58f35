package router

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/schoolbot/core/telegram"
	"github.com/m3rciful/schoolbot/core/telegram/middleware"
)

// Conversation receives free-form input that is not a registered command.
type Conversation interface {
	Text(c tele.Context) error
	Media(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and media updates.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownMedia tele.HandlerFunc
}

// TextRoutes builds handlers for text, photo and document routing.
func TextRoutes(conv Conversation, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		text := strings.TrimSpace(c.Text())

		if reg != nil && strings.HasPrefix(text, "/") {
			name, _, _ := strings.Cut(text, " ")
			name, _, _ = strings.Cut(name, "@")
			if key, cmd, ok := reg.LookupCommand(name); ok && cmd.Handler != nil {
				return newSummary("command."+normalizeHandlerName(key)).run(c, func() error {
					return cmd.Handler(c)
				})
			}
		}

		if conv != nil {
			return newSummary("conversation.text").run(c, func() error { return conv.Text(c) })
		}

		if opts.UnknownText != nil {
			return newSummary("unknown_text").run(c, func() error { return opts.UnknownText(c) })
		}

		newSummary("unknown_text").skip(c)
		return nil
	}

	mediaHandler := func(c tele.Context) error {
		if conv != nil {
			return newSummary("conversation.media").run(c, func() error { return conv.Media(c) })
		}
		if opts.UnknownMedia != nil {
			return newSummary("unexpected_media").run(c, func() error { return opts.UnknownMedia(c) })
		}
		newSummary("unexpected_media").skip(c)
		return nil
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(handler)},
		{Endpoint: tele.OnPhoto, Handler: wrap(mediaHandler)},
		{Endpoint: tele.OnDocument, Handler: wrap(mediaHandler)},
	}
}
