package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/logger"
	tghelpers "github.com/m3rciful/schoolbot/core/telegram/helpers"
	"github.com/m3rciful/schoolbot/core/telegram/middleware"
	"github.com/m3rciful/schoolbot/core/telegram/netutil"
)

// summary describes one routed update for the handler.handled log line.
type summary struct {
	handler string
	start   time.Time
	status  string
	extras  []slog.Attr
}

func newSummary(handler string) *summary {
	return &summary{handler: handler, start: time.Now()}
}

func (s *summary) with(attrs ...slog.Attr) *summary {
	s.extras = append(s.extras, attrs...)
	return s
}

// run executes fn and logs the summary whatever it returns.
func (s *summary) run(c tele.Context, fn func() error) error {
	tghelpers.WithHandler(c, s.handler)
	err := fn()
	s.log(c, err)
	return err
}

// skip logs an update no handler was found for.
func (s *summary) skip(c tele.Context) {
	s.status = "skip"
	s.log(c, nil)
}

func (s *summary) log(c tele.Context, err error) {
	ctx := tghelpers.WithHandler(c, s.handler)
	msgs, kb := middleware.GetCounters(c)

	status, outcome := s.status, middleware.GetOutcome(c)
	if err != nil {
		status, outcome = "fail", "fail"
		if errors.Is(err, context.Canceled) {
			status, outcome = "cancelled", "cancelled"
		}
	}
	if status == "" {
		status = "ok"
	}
	if outcome == "" {
		outcome = "ok"
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", s.handler),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(s.start)),
	}
	if from, to := middleware.GetTransition(c); from != "" || to != "" {
		attrs = append(attrs, slog.String("state_from", from), slog.String("state_to", to))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(netutil.Redact(err), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	attrs = append(attrs, s.extras...)

	level := slog.LevelInfo
	if err != nil && status == "fail" {
		level = slog.LevelWarn
	}
	logger.LogEvent(ctx, logger.TG, level, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "CANCELLED"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	}
	return strings.ToUpper(netutil.Kind(err))
}
