package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/metrics"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	return b
}

func messageUpdate(id int, userID int64) tele.Update {
	user := &tele.User{ID: userID}
	return tele.Update{ID: id, Message: &tele.Message{
		ID:     id,
		Sender: user,
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Text:   "hello",
	}}
}

func callbackUpdate(id int, userID int64) tele.Update {
	user := &tele.User{ID: userID}
	return tele.Update{ID: id, Callback: &tele.Callback{
		Sender:  user,
		Data:    "\fresults",
		Message: &tele.Message{ID: 1, Chat: &tele.Chat{ID: userID}},
	}}
}

func TestRateLimitPerUser(t *testing.T) {
	b := offlineBot(t)
	var handled, limited int
	h := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Burst:     2,
		OnLimited: func(tele.Context) error { limited++; return nil },
	})(func(tele.Context) error { handled++; return nil })

	for i := 1; i <= 3; i++ {
		require.NoError(t, h(b.NewContext(messageUpdate(i, 7))))
	}
	require.NoError(t, h(b.NewContext(messageUpdate(4, 8))))

	assert.Equal(t, 3, handled)
	assert.Equal(t, 1, limited)
}

func TestRateLimitExclude(t *testing.T) {
	b := offlineBot(t)
	var handled int
	h := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"callback": {}},
	})(func(tele.Context) error { handled++; return nil })

	for i := 1; i <= 3; i++ {
		require.NoError(t, h(b.NewContext(callbackUpdate(i, 7))))
	}
	assert.Equal(t, 3, handled)
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, "callback", UpdateKind(callbackUpdate(1, 1)))
	assert.Equal(t, "message", UpdateKind(messageUpdate(1, 1)))
	assert.Equal(t, "photo", UpdateKind(tele.Update{Message: &tele.Message{Photo: &tele.Photo{}}}))
	assert.Equal(t, "document", UpdateKind(tele.Update{Message: &tele.Message{Document: &tele.Document{}}}))
	assert.Equal(t, "other", UpdateKind(tele.Update{}))
}

func TestMetricsCountersAndOutcome(t *testing.T) {
	b := offlineBot(t)
	c := b.NewContext(messageUpdate(1, 7))

	h := MessageMetricsMiddleware(metrics.New())(func(c tele.Context) error {
		AddCounters(c, 2, true)
		SetOutcome(c, "reprompt")
		return nil
	})
	require.NoError(t, h(c))

	msgs, kb := GetCounters(c)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
	assert.Equal(t, "reprompt", GetOutcome(c))
}

func TestRecoverMiddleware(t *testing.T) {
	b := offlineBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(b.NewContext(messageUpdate(1, 7)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	want := errors.New("plain")
	h = RecoverMiddleware(func(tele.Context) error { return want })
	assert.ErrorIs(t, h(b.NewContext(messageUpdate(2, 7))), want)
}
