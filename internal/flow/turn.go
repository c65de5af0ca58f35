package flow

import (
	"context"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/telegram/state"
	"github.com/m3rciful/schoolbot/internal/channel"
)

// turn is the handling of one event. It runs with the session locked.
type turn struct {
	ctx  context.Context
	e    *Engine
	sess *state.Session
	ev   Event

	sent    int
	kb      bool
	result  string
	drained state.DrainResult
	// sourceGone is set once the pressed keyboard message was dealt with.
	sourceGone bool
	// sourceTracked records whether that message was tracked when the event arrived.
	sourceTracked bool
}

func newTurn(ctx context.Context, e *Engine, sess *state.Session, ev Event) *turn {
	return &turn{
		ctx:           ctx,
		e:             e,
		sess:          sess,
		ev:            ev,
		result:        "ok",
		sourceTracked: ev.MessageID != 0 && sess.IsTracked(ev.MessageID),
	}
}

// Delete implements state.Deleter and counts what the drains did.
func (t *turn) Delete(ctx context.Context, chatID int64, messageID int) error {
	err := t.e.deleter.Delete(ctx, chatID, messageID)
	if err != nil {
		t.drained.Ignored++
		logger.LogEvent(ctx, logger.FSM, slog.LevelDebug, "trail.delete",
			slog.String("status", "skip"),
			slog.Int("message_id", messageID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 128)),
		)
		return err
	}
	t.drained.Deleted++
	return nil
}

func (t *turn) drain(trails ...state.Trail) {
	for _, tr := range trails {
		t.sess.Drain(t.ctx, tr, t)
	}
}

func (t *turn) drainAll() {
	t.sess.DrainAll(t.ctx, t)
}

// dropSource deletes the message carrying the pressed keyboard unless a trail
// owns it.
func (t *turn) dropSource() {
	if t.sourceGone || t.ev.Kind != KindButton || t.ev.MessageID == 0 {
		return
	}
	t.sourceGone = true
	if t.sourceTracked {
		return
	}
	_ = t.Delete(t.ctx, t.sess.ChatID, t.ev.MessageID)
}

// dropInput removes the user's message.
func (t *turn) dropInput() {
	if t.ev.Kind == KindButton || t.ev.MessageID == 0 {
		return
	}
	t.e.cfg.Discard(t.ctx, channel.Message{ChatID: t.sess.ChatID, ID: t.ev.MessageID})
}

// keepInput tracks the user's message into a trail instead of deleting it.
func (t *turn) keepInput(tr state.Trail) {
	if t.ev.Kind == KindButton || t.ev.MessageID == 0 {
		return
	}
	t.sess.Track(tr, t.ev.MessageID)
}

func (t *turn) send(c channel.Content) (channel.Message, error) {
	msg, err := t.e.cfg.Client.Send(t.ctx, channel.Chat(t.sess.ChatID), c)
	if err != nil {
		return channel.Message{}, fmt.Errorf("send: %w", err)
	}
	t.sent++
	if c.Markup != nil {
		t.kb = true
	}
	return msg, nil
}

func markdown(text string, markup *tele.ReplyMarkup) channel.Content {
	return channel.Content{Text: text, ParseMode: tele.ModeMarkdown, Markup: markup}
}

// screen renders a clean screen: the screen trail and any extra trails are
// drained, the pressed keyboard message is removed, and the new message
// becomes the only entry of the screen trail.
func (t *turn) screen(text string, markup *tele.ReplyMarkup, extra ...state.Trail) error {
	t.drain(state.TrailScreen)
	t.drain(extra...)
	t.dropSource()
	msg, err := t.send(markdown(text, markup))
	if err != nil {
		return err
	}
	t.sess.Track(state.TrailScreen, msg.ID)
	return nil
}

// adminScreen is screen for the admin flow, which keeps its messages in the
// admin trail.
func (t *turn) adminScreen(text string, markup *tele.ReplyMarkup) error {
	t.drain(state.TrailScreen, state.TrailAdmin)
	t.dropSource()
	return t.reply(state.TrailAdmin, text, markup)
}

// reply sends without clearing anything and tracks the message into tr.
func (t *turn) reply(tr state.Trail, text string, markup *tele.ReplyMarkup) error {
	msg, err := t.send(markdown(text, markup))
	if err != nil {
		return err
	}
	t.sess.Track(tr, msg.ID)
	return nil
}

// expireResults drains the results trail after the configured delay unless
// the trail changed in the meantime.
func (t *turn) expireResults() {
	sess, e := t.sess, t.e
	gen := sess.Generation(state.TrailResults)
	ctx := context.WithoutCancel(t.ctx)
	e.cfg.Schedule(e.cfg.ResultsTTL, func() {
		sess.Lock()
		defer sess.Unlock()
		if sess.Generation(state.TrailResults) != gen {
			logger.LogEvent(ctx, logger.FSM, slog.LevelDebug, "results.expire",
				slog.String("status", "skip"),
			)
			return
		}
		res := sess.Drain(ctx, state.TrailResults, e.deleter)
		e.cfg.Metrics.Cleanup(res.Deleted, res.Ignored)
		logger.LogEvent(ctx, logger.FSM, slog.LevelDebug, "results.expire",
			slog.String("status", "ok"),
			slog.Int("deleted", res.Deleted),
			slog.Int("ignored", res.Ignored),
		)
	})
}
