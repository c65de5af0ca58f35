package channel

import (
	"context"
	"fmt"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

// Telebot implements Client on top of a telebot instance. The bot is bound
// once it exists, which happens after routes are assembled.
type Telebot struct {
	bot atomic.Pointer[tele.Bot]
}

// NewTelebot returns a client, optionally bound to b.
func NewTelebot(b *tele.Bot) *Telebot {
	t := &Telebot{}
	if b != nil {
		t.bot.Store(b)
	}
	return t
}

// Bind attaches the bot used for API calls.
func (t *Telebot) Bind(b *tele.Bot) {
	t.bot.Store(b)
}

func (t *Telebot) api(ctx context.Context) (*tele.Bot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := t.bot.Load()
	if b == nil {
		return nil, ErrUnbound
	}
	return b, nil
}

func sendOptions(c Content) *tele.SendOptions {
	return &tele.SendOptions{
		ParseMode:   c.ParseMode,
		Entities:    c.Entities,
		ReplyMarkup: c.Markup,
	}
}

// Send delivers c to the recipient.
func (t *Telebot) Send(ctx context.Context, to tele.Recipient, c Content) (Message, error) {
	b, err := t.api(ctx)
	if err != nil {
		return Message{}, err
	}
	var what any = c.Text
	if c.PhotoID != "" {
		what = &tele.Photo{File: tele.File{FileID: c.PhotoID}, Caption: c.Text}
	}
	m, err := b.Send(to, what, sendOptions(c))
	if err != nil {
		return Message{}, fmt.Errorf("send to %s: %w", to.Recipient(), err)
	}
	return Message{ChatID: m.Chat.ID, ID: m.ID}, nil
}

// Edit replaces the message text, or its caption when c carries a photo.
func (t *Telebot) Edit(ctx context.Context, msg Message, c Content) error {
	b, err := t.api(ctx)
	if err != nil {
		return err
	}
	if c.PhotoID != "" {
		_, err = b.EditCaption(msg, c.Text, sendOptions(c))
	} else {
		_, err = b.Edit(msg, c.Text, sendOptions(c))
	}
	if err != nil {
		return fmt.Errorf("edit message %d: %w", msg.ID, err)
	}
	return nil
}

// Delete removes the message.
func (t *Telebot) Delete(ctx context.Context, msg Message) error {
	b, err := t.api(ctx)
	if err != nil {
		return err
	}
	return b.Delete(msg)
}

// MemberStatus reports the user's status in chat.
func (t *Telebot) MemberStatus(ctx context.Context, chat tele.Recipient, userID int64) (tele.MemberStatus, error) {
	b, err := t.api(ctx)
	if err != nil {
		return "", err
	}
	cm, err := b.ChatMemberOf(chat, &tele.User{ID: userID})
	if err != nil {
		return "", fmt.Errorf("chat member of %s: %w", chat.Recipient(), err)
	}
	return cm.Role, nil
}
