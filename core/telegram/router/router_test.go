package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/schoolbot/core/telegram"
	"github.com/m3rciful/schoolbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/schoolbot/core/telegram/helpers"
	"github.com/m3rciful/schoolbot/core/telegram/middleware"
)

type recordingConversation struct {
	texts []string
	media int
}

func (r *recordingConversation) Text(c tele.Context) error {
	r.texts = append(r.texts, c.Text())
	return nil
}

func (r *recordingConversation) Media(tele.Context) error {
	r.media++
	return nil
}

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	return b
}

func textUpdate(id int, text string) tele.Update {
	user := &tele.User{ID: 5}
	return tele.Update{ID: id, Message: &tele.Message{
		ID:     id,
		Sender: user,
		Chat:   &tele.Chat{ID: 5, Type: tele.ChatPrivate},
		Text:   text,
	}}
}

func routeFor(t *testing.T, routes []tg.Route, endpoint string) tele.HandlerFunc {
	t.Helper()
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	t.Fatalf("no route for %s", endpoint)
	return nil
}

func TestTextRoutesPreferRegisteredCommands(t *testing.T) {
	b := offlineBot(t)
	reg := tg.NewRegistry()
	var cancelled int
	require.NoError(t, reg.RegisterCommand("/cancel", commands.Command{
		Handler:     func(tele.Context) error { cancelled++; return nil },
		Description: "Cancel",
	}))
	conv := &recordingConversation{}
	routes := TextRoutes(conv, reg, TextOptions{})
	require.Len(t, routes, 3)

	h := routeFor(t, routes, tele.OnText)
	require.NoError(t, h(b.NewContext(textUpdate(1, "/cancel"))))
	require.NoError(t, h(b.NewContext(textUpdate(2, "/cancel@school_bot now"))))
	require.NoError(t, h(b.NewContext(textUpdate(3, "STD001"))))
	require.NoError(t, h(b.NewContext(textUpdate(4, "/unknown"))))

	assert.Equal(t, 2, cancelled)
	assert.Equal(t, []string{"STD001", "/unknown"}, conv.texts)
}

func TestTextRoutesMedia(t *testing.T) {
	b := offlineBot(t)
	conv := &recordingConversation{}
	routes := TextRoutes(conv, nil, TextOptions{})

	upd := textUpdate(9, "")
	upd.Message.Photo = &tele.Photo{File: tele.File{FileID: "photo-1"}}
	require.NoError(t, routeFor(t, routes, tele.OnPhoto)(b.NewContext(upd)))
	require.NoError(t, routeFor(t, routes, tele.OnDocument)(b.NewContext(upd)))
	assert.Equal(t, 2, conv.media)
}

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/cancel", commands.Command{
		Handler:     func(tele.Context) error { return errors.New("boom") },
		Description: "Cancel",
		Aliases:     []string{"stop"},
	}))
	routes := CommandRoutes(reg)
	require.Len(t, routes, 2)

	b := offlineBot(t)
	err := routeFor(t, routes, "/stop")(b.NewContext(textUpdate(1, "/stop")))
	assert.EqualError(t, err, "boom")
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "start", normalizeHandlerName(" /Start "))
	assert.Equal(t, "unknown", normalizeHandlerName(""))
	assert.Equal(t, "admin_menu", normalizeHandlerName("admin menu"))
}

type callbackContext struct {
	tele.Context
	answered int
}

func (c *callbackContext) Respond(...*tele.CallbackResponse) error {
	c.answered++
	return nil
}

func TestCallbackRouteAnswersAndDispatches(t *testing.T) {
	tghelpers.SetDispatcher(nil)
	b := offlineBot(t)
	reg := tg.NewRegistry()
	var keys []string
	require.NoError(t, reg.RegisterCallback("join", func(c tele.Context) error {
		keys = append(keys, "join")
		middleware.SetTransition(c, "idle", "student_menu")
		return nil
	}))
	var missing int
	route := CallbackRoute(reg, CallbackOptions{NotFound: func(tele.Context) error { missing++; return nil }})
	require.Equal(t, tele.OnCallback, route.Endpoint)

	user := &tele.User{ID: 5}
	press := func(id int, data string) *callbackContext {
		return &callbackContext{Context: b.NewContext(tele.Update{ID: id, Callback: &tele.Callback{
			ID:     "q",
			Sender: user,
			Data:   data,
		}})}
	}

	known := press(1, "\fjoin")
	require.NoError(t, route.Handler(known))
	unknown := press(2, "\fnope")
	require.NoError(t, route.Handler(unknown))

	assert.Equal(t, []string{"join"}, keys)
	assert.Equal(t, 1, missing)
	assert.Equal(t, 1, known.answered)
	assert.Equal(t, 1, unknown.answered)
	from, to := middleware.GetTransition(known)
	assert.Equal(t, "idle", from)
	assert.Equal(t, "student_menu", to)
}

func TestErrorCode(t *testing.T) {
	assert.Empty(t, errorCode(nil))
	assert.Equal(t, "CANCELLED", errorCode(context.Canceled))
	assert.Equal(t, "TIMEOUT", errorCode(context.DeadlineExceeded))
	assert.Equal(t, "HTTP_4XX", errorCode(&tele.Error{Code: 403, Description: "Forbidden"}))
	assert.Equal(t, "UNKNOWN", errorCode(errors.New("boom")))
}

func TestCallbackRouteExpiredKey(t *testing.T) {
	tghelpers.SetDispatcher(nil)
	b := offlineBot(t)
	route := CallbackRoute(tg.NewRegistry(), CallbackOptions{Expired: "This button has expired."})

	c := &callbackContext{Context: b.NewContext(tele.Update{ID: 3, Callback: &tele.Callback{
		ID:     "q",
		Sender: &tele.User{ID: 5},
		Data:   "\fold",
	}})}
	require.NoError(t, route.Handler(c))
	assert.Equal(t, 1, c.answered)
}
