// Package channeltest provides an in-memory channel.Client for tests.
package channeltest

import (
	"context"
	"errors"
	"strconv"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/internal/channel"
)

// ErrFailed is the default failure of a recipient marked with Fail.
var ErrFailed = errors.New("channeltest: delivery failed")

// Sent records one delivered message.
type Sent struct {
	To      string
	Message channel.Message
	Content channel.Content
}

// Edited records one edit.
type Edited struct {
	Message channel.Message
	Content channel.Content
}

// Fake records every call. Message ids are allocated from one counter.
type Fake struct {
	mu sync.Mutex

	// ChannelChatID is the chat id reported for non-numeric recipients.
	ChannelChatID int64

	nextID     int
	sent       []Sent
	edited     []Edited
	deleted    []channel.Message
	failSend   map[string]error
	failDelete map[int]error
	failEdit   error
	statuses   map[int64]tele.MemberStatus
	statusErr  error
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		ChannelChatID: -1001,
		failSend:      make(map[string]error),
		failDelete:    make(map[int]error),
		statuses:      make(map[int64]tele.MemberStatus),
	}
}

// Fail makes every send to the recipient fail.
func (f *Fake) Fail(to tele.Recipient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSend[to.Recipient()] = ErrFailed
}

// FailDelete makes deleting the message id fail.
func (f *Fake) FailDelete(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failDelete[id] = ErrFailed
}

// FailEdit makes every edit fail with err.
func (f *Fake) FailEdit(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failEdit = err
}

// SetStatus sets the membership status of a user.
func (f *Fake) SetStatus(userID int64, st tele.MemberStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[userID] = st
}

// SetStatusErr makes membership lookups fail.
func (f *Fake) SetStatusErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusErr = err
}

func (f *Fake) Send(ctx context.Context, to tele.Recipient, c channel.Content) (channel.Message, error) {
	if err := ctx.Err(); err != nil {
		return channel.Message{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rcpt := to.Recipient()
	if err := f.failSend[rcpt]; err != nil {
		return channel.Message{}, err
	}
	chatID, err := strconv.ParseInt(rcpt, 10, 64)
	if err != nil {
		chatID = f.ChannelChatID
	}
	f.nextID++
	msg := channel.Message{ChatID: chatID, ID: f.nextID}
	f.sent = append(f.sent, Sent{To: rcpt, Message: msg, Content: c})
	return msg, nil
}

func (f *Fake) Edit(ctx context.Context, msg channel.Message, c channel.Content) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEdit != nil {
		return f.failEdit
	}
	f.edited = append(f.edited, Edited{Message: msg, Content: c})
	return nil
}

func (f *Fake) Delete(ctx context.Context, msg channel.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDelete[msg.ID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, msg)
	return nil
}

func (f *Fake) MemberStatus(ctx context.Context, _ tele.Recipient, userID int64) (tele.MemberStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return "", f.statusErr
	}
	st, ok := f.statuses[userID]
	if !ok {
		return tele.Left, nil
	}
	return st, nil
}

// Sent returns every delivered message in order.
func (f *Fake) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

// SentTo returns the messages delivered to the recipient.
func (f *Fake) SentTo(to tele.Recipient) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sent
	for _, s := range f.sent {
		if s.To == to.Recipient() {
			out = append(out, s)
		}
	}
	return out
}

// Last returns the most recent delivery.
func (f *Fake) Last() (Sent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return Sent{}, false
	}
	return f.sent[len(f.sent)-1], true
}

// Edited returns every edit in order.
func (f *Fake) Edited() []Edited {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Edited(nil), f.edited...)
}

// Deleted returns every deleted message in order.
func (f *Fake) Deleted() []channel.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]channel.Message(nil), f.deleted...)
}

// DeletedIDs returns the ids deleted in the chat.
func (f *Fake) DeletedIDs(chatID int64) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, m := range f.deleted {
		if m.ChatID == chatID {
			out = append(out, m.ID)
		}
	}
	return out
}

// Reset forgets recorded calls but keeps failures and statuses.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent, f.edited, f.deleted = nil, nil, nil
}
