// Package flow is the conversation engine. Every chat owns a session; each
// event is validated against the session state through a closed dispatch
// table, handled, and the next state is committed when the handler succeeds.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/metrics"
	"github.com/m3rciful/schoolbot/core/telegram/state"
	"github.com/m3rciful/schoolbot/internal/auth"
	"github.com/m3rciful/schoolbot/internal/broadcast"
	"github.com/m3rciful/schoolbot/internal/channel"
	"github.com/m3rciful/schoolbot/internal/posts"
	"github.com/m3rciful/schoolbot/internal/results"
	"github.com/m3rciful/schoolbot/internal/storage"
)

// Conversation states.
const (
	StudentMenu  state.State = "student_menu"
	ResultsName  state.State = "results_name"
	ResultsID    state.State = "results_id"
	SupportIssue state.State = "support_issue"
	SupportName  state.State = "support_name"
	AdminLogin   state.State = "admin_login"
	AdminMenu    state.State = "admin_menu"
	AdminPost    state.State = "admin_post"
	AdminEdit    state.State = "admin_edit"
	AdminDelete  state.State = "admin_delete"
)

// States lists every state of the machine.
var States = []state.State{
	StudentMenu, ResultsName, ResultsID, SupportIssue, SupportName,
	AdminLogin, AdminMenu, AdminPost, AdminEdit, AdminDelete,
}

// Commands understood by the engine.
const (
	CmdStart  = "/start"
	CmdAdmin  = "/admin"
	CmdCancel = "/cancel"
)

// Kind classifies an event.
type Kind int

const (
	KindCommand Kind = iota
	KindButton
	KindText
	KindMedia
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindButton:
		return "button"
	case KindText:
		return "text"
	case KindMedia:
		return "media"
	}
	return "unknown"
}

// Event is one user input.
type Event struct {
	Kind     Kind
	ChatID   int64
	UserID   int64
	Username string

	Command string
	Tag     Tag

	Text     string
	Entities tele.Entities
	PhotoID  string

	// MessageID is the user's message, or for a button the message that
	// carries the pressed keyboard.
	MessageID int
}

// Outcome reports what handling an event did.
type Outcome struct {
	From     state.State
	To       state.State
	Sent     int
	Keyboard bool
	// Result is ok, reprompt or denied.
	Result string
}

// Config wires the engine to its collaborators.
type Config struct {
	Client      channel.Client
	Gate        *auth.Gate
	Posts       *posts.Service
	Broadcast   *broadcast.Distributor
	Subscribers storage.SubscriberStore
	Results     *results.Lookup
	SupportChat tele.Recipient
	ChannelURL  string
	// RecentPosts is the size of the admin edit and delete pickers.
	RecentPosts int
	// ResultsTTL is how long a results screen stays before it removes itself.
	ResultsTTL time.Duration
	Metrics    *metrics.Metrics

	// Discard deletes a message sent by the user; nil deletes synchronously.
	Discard func(ctx context.Context, msg channel.Message)
	// Schedule runs fn once after d; nil uses time.AfterFunc.
	Schedule func(d time.Duration, fn func())
}

// Engine runs conversations.
type Engine struct {
	cfg      Config
	sessions *state.Store
	table    map[state.State]row
	deleter  state.Deleter
}

const (
	defaultRecentPosts = 5
	defaultResultsTTL  = 60 * time.Second
	feedSize           = 5
)

// New returns an engine with an empty session store.
func New(cfg Config) *Engine {
	if cfg.RecentPosts <= 0 {
		cfg.RecentPosts = defaultRecentPosts
	}
	if cfg.ResultsTTL <= 0 {
		cfg.ResultsTTL = defaultResultsTTL
	}
	if cfg.Discard == nil {
		client := cfg.Client
		cfg.Discard = func(ctx context.Context, msg channel.Message) {
			_ = client.Delete(ctx, msg)
		}
	}
	if cfg.Schedule == nil {
		cfg.Schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	return &Engine{
		cfg:      cfg,
		sessions: state.NewStore(StudentMenu),
		table:    dispatchTable(),
		deleter:  channel.Deleter(cfg.Client),
	}
}

// Sessions exposes the session store.
func (e *Engine) Sessions() *state.Store { return e.sessions }

// Handle processes ev under the session lock of its chat. The next state is
// committed only when the handler returns no error.
func (e *Engine) Handle(ctx context.Context, ev Event) (Outcome, error) {
	if ev.ChatID == 0 {
		return Outcome{}, errors.New("flow: event without chat")
	}
	sess := e.sessions.Get(ev.ChatID)
	sess.Lock()
	defer sess.Unlock()

	t := newTurn(ctx, e, sess, ev)
	from := sess.State

	var (
		next state.State
		err  error
	)
	if ev.Kind == KindCommand {
		next, err = t.command()
	} else {
		next, err = e.route(t)
	}

	out := Outcome{From: from, To: from, Sent: t.sent, Keyboard: t.kb, Result: t.result}
	e.cfg.Metrics.Cleanup(t.drained.Deleted, t.drained.Ignored)
	e.cfg.Metrics.SetSessions(e.sessions.Len())
	if err != nil {
		logger.LogEvent(ctx, logger.FSM, slog.LevelWarn, "fsm.transition",
			slog.String("status", "fail"),
			slog.String("state_from", string(from)),
			slog.String("input", ev.Kind.String()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return out, fmt.Errorf("%s %s: %w", from, ev.Kind, err)
	}
	sess.State = next
	out.To = next
	logger.LogEvent(ctx, logger.FSM, slog.LevelDebug, "fsm.transition",
		slog.String("status", "ok"),
		slog.String("state_from", string(from)),
		slog.String("state_to", string(next)),
		slog.String("input", ev.Kind.String()),
		slog.String("tag", ev.Tag.String()),
		slog.String("outcome", t.result),
	)
	return out, nil
}
