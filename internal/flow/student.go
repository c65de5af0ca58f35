package flow

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/telegram/format"
	"github.com/m3rciful/schoolbot/core/telegram/state"
	"github.com/m3rciful/schoolbot/internal/results"
)

// Scratch keys.
const (
	keyName       = "name"
	keyIssue      = "support_issue"
	keyPicker     = "recent_posts"
	keyEditTarget = "edit_post"
)

func (t *turn) command() (state.State, error) {
	switch t.ev.Command {
	case CmdStart:
		return t.start()
	case CmdAdmin:
		return t.enterAdmin()
	case CmdCancel:
		return t.cancel()
	}
	t.ev.Kind = KindText
	return t.e.route(t)
}

func (t *turn) start() (state.State, error) {
	if err := t.e.cfg.Subscribers.AddSubscriber(t.ctx, t.sess.ChatID); err != nil {
		logger.LogEvent(t.ctx, logger.FSM, slog.LevelWarn, "subscriber.add",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	t.drainAll()
	t.sess.Wipe()
	return StudentMenu, t.screen(textWelcome, joinKeyboard(t.e.cfg.ChannelURL))
}

func (t *turn) cancel() (state.State, error) {
	t.drainAll()
	t.sess.Wipe()
	return StudentMenu, t.screen(textCancelled, mainKeyboard())
}

func (t *turn) joinPrompt() (state.State, error) {
	return StudentMenu, t.screen(textJoinFirst, joinKeyboard(t.e.cfg.ChannelURL))
}

func (t *turn) checkJoin() (state.State, error) {
	if !t.e.cfg.Gate.IsMember(t.ctx, t.ev.UserID) {
		t.result = "denied"
		return t.joinPrompt()
	}
	return StudentMenu, t.screen(textJoined, mainKeyboard())
}

func (t *turn) back() (state.State, error) {
	t.drainAll()
	return StudentMenu, t.screen(textMainMenu, mainKeyboard())
}

func (t *turn) useButtons() (state.State, error) {
	t.dropInput()
	return StudentMenu, t.screen(textUseButtons, mainKeyboard())
}

func (t *turn) aboutSchool() (state.State, error) {
	return StudentMenu, t.screen(textAboutSchool, backKeyboard())
}

func (t *turn) aboutBot() (state.State, error) {
	return StudentMenu, t.screen(textAboutBot, backKeyboard())
}

func (t *turn) announcements() (state.State, error) {
	list, err := t.e.cfg.Posts.ListRecent(t.ctx, feedSize)
	if err != nil {
		return "", err
	}
	var items []string
	for _, p := range list {
		body := strings.TrimSpace(p.Body())
		if body == "" {
			continue
		}
		items = append(items, fmt.Sprintf("*%d.* %s", len(items)+1, format.Markdown(body)))
	}
	text := textNoFeed
	if len(items) > 0 {
		text = textFeedTitle + strings.Join(items, "\n\n")
	}
	return StudentMenu, t.screen(text, backKeyboard())
}

func (t *turn) askName() (state.State, error) {
	t.dropInput()
	return ResultsName, t.screen(textAskName, backKeyboard())
}

func (t *turn) takeName() (state.State, error) {
	t.dropInput()
	t.sess.Put(keyName, strings.TrimSpace(t.ev.Text))
	return ResultsID, t.screen(textAskID, backKeyboard())
}

func (t *turn) askID() (state.State, error) {
	t.dropInput()
	return ResultsID, t.screen(textAskID, backKeyboard())
}

func (t *turn) lookupResults() (state.State, error) {
	t.dropInput()
	name := t.sess.String(keyName)
	if name == "" {
		return t.askName()
	}
	if err := t.reply(state.TrailResults, textSearching, nil); err != nil {
		return "", err
	}
	res, ok := t.e.cfg.Results.Find(t.ctx, name, t.ev.Text)
	t.sess.Forget(keyName)
	if !ok {
		return StudentMenu, t.screen(textNoResults, backKeyboard())
	}

	t.drain(state.TrailScreen)
	if err := t.reply(state.TrailResults, renderResults(name, res), backKeyboard()); err != nil {
		return "", err
	}
	t.expireResults()
	return StudentMenu, nil
}

func renderResults(name string, r results.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Results for %s*\n\n", format.Markdown(name))
	for _, s := range r.Scores {
		fmt.Fprintf(&b, "• %s: *%s*\n", format.Markdown(s.Subject), number(s.Value))
	}
	fmt.Fprintf(&b, "\n📈 Total: %s 📊 Average: %s%%", number(r.Total), number(r.Average))
	return b.String()
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (t *turn) askIssue() (state.State, error) {
	t.dropInput()
	return SupportIssue, t.screen(textAskIssue, backKeyboard())
}

func (t *turn) takeIssue() (state.State, error) {
	t.dropInput()
	t.sess.Put(keyIssue, t.ev.Text)
	return SupportName, t.screen(textAskContact, backKeyboard())
}

func (t *turn) askContactName() (state.State, error) {
	t.dropInput()
	return SupportName, t.screen(textAskContact, backKeyboard())
}

func (t *turn) sendTicket() (state.State, error) {
	issue := t.sess.String(keyIssue)
	if issue == "" {
		return t.askIssue()
	}
	t.dropInput()

	ref := strings.ToUpper(uuid.NewString()[:8])
	username := strconv.FormatInt(t.ev.UserID, 10)
	if t.ev.Username != "" {
		username = "@" + t.ev.Username
	}
	ticket := fmt.Sprintf("🆘 *NEW SUPPORT TICKET* #%s\n\n*Student:* %s\n*Username:* %s\n\n*Problem:*\n%s",
		ref,
		format.Markdown(strings.TrimSpace(t.ev.Text)),
		format.Markdown(username),
		format.Markdown(issue),
	)

	reply := textTicketSent
	status := "ok"
	var sendErr error
	if t.e.cfg.SupportChat == nil {
		sendErr = fmt.Errorf("support chat not configured")
	} else {
		_, sendErr = t.e.cfg.Client.Send(t.ctx, t.e.cfg.SupportChat, markdown(ticket, nil))
	}
	if sendErr != nil {
		reply, status = textTicketFail, "fail"
	}
	attrs := []slog.Attr{slog.String("status", status), slog.String("ticket", ref)}
	if sendErr != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(sendErr.Error(), 256)))
	}
	logger.LogEvent(t.ctx, logger.FSM, slog.LevelInfo, "support.ticket", attrs...)

	t.sess.Wipe()
	return StudentMenu, t.screen(reply, mainKeyboard())
}
