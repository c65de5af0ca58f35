package flow

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/telegram/callbacks"
	"github.com/m3rciful/schoolbot/core/telegram/helpers"
	"github.com/m3rciful/schoolbot/core/telegram/middleware"
)

// Adapter turns telebot updates into engine events.
type Adapter struct {
	engine *Engine
}

// NewAdapter returns an adapter feeding e.
func NewAdapter(e *Engine) *Adapter {
	return &Adapter{engine: e}
}

// CommandHandler handles one slash command.
func (a *Adapter) CommandHandler(name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		ev := eventFrom(c, KindCommand)
		ev.Command = name
		if m := c.Message(); m != nil {
			ev.Text = m.Payload
		}
		return a.handle(c, ev)
	}
}

// Button handles an inline keyboard press. The callback query is answered
// by the callback route.
func (a *Adapter) Button(c tele.Context) error {
	key := callbacks.CallbackKey(c)
	tag, ok := ParseTag(key)
	if !ok {
		logger.LogEvent(helpers.BuildContext(c), logger.FSM, slog.LevelDebug, "button.unknown",
			slog.String("status", "skip"),
			slog.String("key", key),
		)
		return nil
	}
	ev := eventFrom(c, KindButton)
	ev.Tag = tag
	return a.handle(c, ev)
}

// Text handles a plain text message.
func (a *Adapter) Text(c tele.Context) error {
	ev := eventFrom(c, KindText)
	if m := c.Message(); m != nil {
		ev.Text = m.Text
		ev.Entities = m.Entities
	}
	return a.handle(c, ev)
}

// Media handles a photo or document message.
func (a *Adapter) Media(c tele.Context) error {
	ev := eventFrom(c, KindMedia)
	if m := c.Message(); m != nil {
		ev.Text = m.Caption
		ev.Entities = m.CaptionEntities
		if m.Photo != nil {
			ev.PhotoID = m.Photo.FileID
		}
	}
	return a.handle(c, ev)
}

func (a *Adapter) handle(c tele.Context, ev Event) error {
	out, err := a.engine.Handle(helpers.BuildContext(c), ev)
	middleware.AddCounters(c, out.Sent, out.Keyboard)
	middleware.SetTransition(c, string(out.From), string(out.To))
	if out.Result != "" && out.Result != "ok" {
		middleware.SetOutcome(c, out.Result)
	}
	return err
}

func eventFrom(c tele.Context, kind Kind) Event {
	ev := Event{Kind: kind}
	ev.UserID, ev.ChatID = helpers.Participants(c)
	if u := c.Sender(); u != nil {
		ev.Username = u.Username
	}
	if m := c.Message(); m != nil {
		ev.MessageID = m.ID
	}
	return ev
}
