// Package channel is the boundary to the messaging platform: sending,
// editing and deleting messages and reading channel membership.
package channel

import (
	"context"
	"errors"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/telegram/state"
)

// ErrUnbound is returned by Telebot before a bot has been attached.
var ErrUnbound = errors.New("channel: bot not bound")

// Message addresses a delivered message.
type Message struct {
	ChatID int64
	ID     int
}

// MessageSig implements tele.Editable.
func (m Message) MessageSig() (string, int64) {
	return strconv.Itoa(m.ID), m.ChatID
}

// Content is a text message or, when PhotoID is set, a photo whose caption is Text.
type Content struct {
	Text      string
	PhotoID   string
	ParseMode tele.ParseMode
	Entities  tele.Entities
	Markup    *tele.ReplyMarkup
}

// Ref is a recipient given by @username or numeric chat id.
type Ref string

// Recipient implements tele.Recipient.
func (r Ref) Recipient() string { return string(r) }

// Chat returns the recipient of a private chat.
func Chat(id int64) tele.Recipient { return tele.ChatID(id) }

// Client is the subset of the Bot API the bot relies on.
type Client interface {
	Send(ctx context.Context, to tele.Recipient, c Content) (Message, error)
	// Edit replaces the text, or the caption of a photo message.
	Edit(ctx context.Context, msg Message, c Content) error
	Delete(ctx context.Context, msg Message) error
	MemberStatus(ctx context.Context, chat tele.Recipient, userID int64) (tele.MemberStatus, error)
}

type deleter struct{ c Client }

func (d deleter) Delete(ctx context.Context, chatID int64, messageID int) error {
	return d.c.Delete(ctx, Message{ChatID: chatID, ID: messageID})
}

// Deleter adapts a Client to the trail drain contract.
func Deleter(c Client) state.Deleter {
	return deleter{c: c}
}
