package telegram

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func textUpdate(id int, chat int64, text string) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		ID:     id,
		Sender: &tele.User{ID: chat},
		Chat:   &tele.Chat{ID: chat, Type: tele.ChatPrivate},
		Text:   text,
	}}
}

func laneBot(t *testing.T, lanes *Lanes, h tele.HandlerFunc) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	b.Use(lanes.Middleware)
	b.Handle(tele.OnText, h)
	return b
}

func TestLanesKeepArrivalOrderPerChat(t *testing.T) {
	lanes := NewLanes(4, nil)
	var (
		mu   sync.Mutex
		seen = map[int64][]string{}
	)
	b := laneBot(t, lanes, func(c tele.Context) error {
		// Early updates take longest, so any reordering would show.
		if c.Text() == "m0" {
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		seen[c.Chat().ID] = append(seen[c.Chat().ID], c.Text())
		mu.Unlock()
		return nil
	})

	want := []string{"m0", "m1", "m2", "m3", "m4", "m5", "m6", "m7"}
	for i, text := range want {
		b.ProcessUpdate(textUpdate(2*i, 1, text))
		b.ProcessUpdate(textUpdate(2*i+1, 2, text))
	}
	lanes.Close()

	assert.Equal(t, want, seen[1])
	assert.Equal(t, want, seen[2])
	assert.Zero(t, lanes.Len())
}

func TestLanesRunChatsInParallel(t *testing.T) {
	lanes := NewLanes(0, nil)
	release := make(chan struct{})
	done := make(chan int64, 2)
	b := laneBot(t, lanes, func(c tele.Context) error {
		if c.Chat().ID == 1 {
			<-release
		}
		done <- c.Chat().ID
		return nil
	})

	b.ProcessUpdate(textUpdate(1, 1, "blocked"))
	b.ProcessUpdate(textUpdate(2, 2, "free"))

	select {
	case id := <-done:
		assert.Equal(t, int64(2), id)
	case <-time.After(2 * time.Second):
		t.Fatal("chat 2 waited on chat 1")
	}
	close(release)
	lanes.Close()
	assert.Equal(t, int64(1), <-done)
}

func TestLanesReportErrorsAndRunInlineAfterClose(t *testing.T) {
	var (
		mu   sync.Mutex
		errs []error
	)
	lanes := NewLanes(1, func(err error, _ tele.Context) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})
	boom := errors.New("boom")
	b := laneBot(t, lanes, func(tele.Context) error { return boom })

	b.ProcessUpdate(textUpdate(1, 3, "x"))
	lanes.Close()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)

	h := lanes.Middleware(func(tele.Context) error { return boom })
	assert.ErrorIs(t, h(b.NewContext(textUpdate(2, 3, "y"))), boom)
}
