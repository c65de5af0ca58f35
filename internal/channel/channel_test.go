package channel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestMessageSig(t *testing.T) {
	id, chat := Message{ChatID: -100123, ID: 42}.MessageSig()
	assert.Equal(t, "42", id)
	assert.Equal(t, int64(-100123), chat)
}

func TestRecipients(t *testing.T) {
	assert.Equal(t, "@school", Ref("@school").Recipient())
	assert.Equal(t, "77", Chat(77).Recipient())
}

func TestTelebotUnbound(t *testing.T) {
	c := NewTelebot(nil)
	_, err := c.Send(context.Background(), Chat(1), Content{Text: "hi"})
	require.ErrorIs(t, err, ErrUnbound)
	require.ErrorIs(t, c.Delete(context.Background(), Message{ChatID: 1, ID: 2}), ErrUnbound)
}

func TestTelebotCancelledContext(t *testing.T) {
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	c := NewTelebot(nil)
	c.Bind(b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.MemberStatus(ctx, Ref("@school"), 5)
	require.ErrorIs(t, err, context.Canceled)
}
