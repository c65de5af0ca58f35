package flow

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/telegram/format"
	"github.com/m3rciful/schoolbot/core/telegram/state"
	"github.com/m3rciful/schoolbot/internal/posts"
)

func (t *turn) enterAdmin() (state.State, error) {
	t.dropInput()
	t.drainAll()
	t.sess.Wipe()
	return AdminLogin, t.reply(state.TrailAdmin, textAskPassword, nil)
}

func (t *turn) askPassword() (state.State, error) {
	return AdminLogin, t.reply(state.TrailAdmin, textAskPassword, nil)
}

func (t *turn) login() (state.State, error) {
	t.dropInput()
	if !t.e.cfg.Gate.Elevate(t.ctx, t.sess, t.ev.Text, t) {
		t.result = "denied"
		return AdminLogin, t.reply(state.TrailAdmin, textWrongPassword, nil)
	}
	return AdminMenu, t.reply(state.TrailAdmin, textGranted, adminKeyboard())
}

func (t *turn) logout() (state.State, error) {
	t.e.cfg.Gate.Logout(t.ctx, t.sess, t)
	return StudentMenu, t.screen(textLoggedOut, mainKeyboard())
}

func (t *turn) adminMenu() (state.State, error) {
	t.dropInput()
	return AdminMenu, t.adminScreen(textAdminMenu, adminKeyboard())
}

func (t *turn) askPost() (state.State, error) {
	t.keepInput(state.TrailAdmin)
	return AdminPost, t.adminScreen(textAskPost, adminBackKeyboard())
}

func (t *turn) publish() (state.State, error) {
	d := posts.Draft{Text: t.ev.Text, Entities: t.ev.Entities, PhotoID: t.ev.PhotoID}
	if (t.ev.Kind == KindMedia && d.PhotoID == "") || (d.PhotoID == "" && strings.TrimSpace(d.Text) == "") {
		t.result = "reprompt"
		return t.askPost()
	}
	t.keepInput(state.TrailAdmin)

	if _, err := t.e.cfg.Posts.Create(t.ctx, d); err != nil {
		return AdminMenu, t.reply(state.TrailAdmin, textPublishFail, adminKeyboard())
	}
	n, err := t.e.cfg.Broadcast.Broadcast(t.ctx, posts.Announcement(d))
	if err != nil {
		logger.LogEvent(t.ctx, logger.FSM, slog.LevelWarn, "broadcast.partial",
			slog.String("status", "fail"),
			slog.Int("delivered", n),
			slog.String("err", err.Error()),
		)
	}
	return AdminMenu, t.reply(state.TrailAdmin, fmt.Sprintf(textBroadcastDone, n), adminKeyboard())
}

func (t *turn) pickForEdit() (state.State, error) {
	return t.pick(textPickEdit, textNoPostsEdit, AdminEdit)
}

func (t *turn) pickForDelete() (state.State, error) {
	return t.pick(textPickDelete, textNoPostsDelete, AdminDelete)
}

// pick shows the numbered list of recent posts and remembers their ids.
func (t *turn) pick(title, empty string, next state.State) (state.State, error) {
	list, err := t.e.cfg.Posts.ListRecent(t.ctx, t.e.cfg.RecentPosts)
	if err != nil {
		return "", err
	}
	t.sess.Forget(keyEditTarget)
	t.sess.Forget(keyPicker)
	if len(list) == 0 {
		return AdminMenu, t.adminScreen(empty, adminKeyboard())
	}

	ids := make([]int64, len(list))
	lines := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ID
		lines[i] = fmt.Sprintf("%d. %s", i+1, format.Markdown(posts.Preview(p)))
	}
	t.sess.Put(keyPicker, ids)
	return next, t.adminScreen(title+strings.Join(lines, "\n"), adminBackKeyboard())
}

// picked resolves a 1-based number against the remembered picker list.
func (t *turn) picked(text string) (id int64, numeric, valid bool) {
	text = strings.TrimSpace(text)
	if text == "" || strings.Trim(text, "0123456789") != "" {
		return 0, false, false
	}
	n, err := strconv.Atoi(text)
	ids := t.pickerIDs()
	if err != nil || n < 1 || n > len(ids) {
		return 0, true, false
	}
	return ids[n-1], true, true
}

// edit reads a number as a (re)selection and anything else as the new text
// of the selected post.
func (t *turn) edit() (state.State, error) {
	t.keepInput(state.TrailAdmin)
	id, numeric, valid := t.picked(t.ev.Text)
	switch {
	case valid:
		t.sess.Put(keyEditTarget, id)
		return AdminEdit, t.reply(state.TrailAdmin, textAskNewText, adminBackKeyboard())
	case numeric:
		t.result = "reprompt"
		return AdminEdit, t.reply(state.TrailAdmin, textInvalidNumber, nil)
	}

	target, ok := t.editTarget()
	if !ok {
		return AdminMenu, t.reply(state.TrailAdmin, textNoSelection, adminKeyboard())
	}
	t.sess.Forget(keyEditTarget)
	_, err := t.e.cfg.Posts.Edit(t.ctx, target, t.ev.Text, t.ev.Entities)
	switch {
	case errors.Is(err, posts.ErrNoPost):
		return AdminMenu, t.reply(state.TrailAdmin, textNoSelection, adminKeyboard())
	case err != nil:
		return AdminMenu, t.reply(state.TrailAdmin, textEditFail, adminKeyboard())
	}
	t.sess.Forget(keyPicker)
	return AdminMenu, t.reply(state.TrailAdmin, textEdited, adminKeyboard())
}

func (t *turn) editReprompt() (state.State, error) {
	t.keepInput(state.TrailAdmin)
	if _, ok := t.editTarget(); ok {
		return AdminEdit, t.reply(state.TrailAdmin, textAskNewText, adminBackKeyboard())
	}
	return AdminEdit, t.reply(state.TrailAdmin, textEditNumber, nil)
}

func (t *turn) delete() (state.State, error) {
	t.keepInput(state.TrailAdmin)
	id, numeric, valid := t.picked(t.ev.Text)
	if !numeric {
		t.result = "reprompt"
		return AdminDelete, t.reply(state.TrailAdmin, textDeleteNumber, nil)
	}
	if !valid {
		t.result = "reprompt"
		return AdminDelete, t.reply(state.TrailAdmin, textInvalidNumber, nil)
	}

	err := t.e.cfg.Posts.Delete(t.ctx, id)
	switch {
	case errors.Is(err, posts.ErrNoPost):
		return AdminMenu, t.reply(state.TrailAdmin, textNoSelection, adminKeyboard())
	case err != nil:
		return AdminMenu, t.reply(state.TrailAdmin, textDeleteFail, adminKeyboard())
	}
	t.sess.Forget(keyPicker)
	return AdminMenu, t.reply(state.TrailAdmin, textDeleted, adminKeyboard())
}

func (t *turn) askDeleteNumber() (state.State, error) {
	t.keepInput(state.TrailAdmin)
	return AdminDelete, t.reply(state.TrailAdmin, textDeleteNumber, nil)
}

func (t *turn) pickerIDs() []int64 {
	v, _ := t.sess.Value(keyPicker)
	ids, _ := v.([]int64)
	return ids
}

func (t *turn) editTarget() (int64, bool) {
	v, _ := t.sess.Value(keyEditTarget)
	id, ok := v.(int64)
	return id, ok
}
