package flow

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/metrics"
	"github.com/m3rciful/schoolbot/core/telegram/state"
	"github.com/m3rciful/schoolbot/internal/auth"
	"github.com/m3rciful/schoolbot/internal/broadcast"
	"github.com/m3rciful/schoolbot/internal/channel"
	"github.com/m3rciful/schoolbot/internal/channel/channeltest"
	"github.com/m3rciful/schoolbot/internal/posts"
	"github.com/m3rciful/schoolbot/internal/results"
	"github.com/m3rciful/schoolbot/internal/storage/storagetest"
)

const (
	chatID = int64(7)
	secret = "s3cret"
)

var (
	supportChat = tele.ChatID(-500)
	schoolChan  = channel.Ref("@school")
)

type harness struct {
	t      *testing.T
	ctx    context.Context
	fake   *channeltest.Fake
	store  *storagetest.Memory
	posts  *posts.Service
	engine *Engine
	tasks  []func()
	nextID int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.csv")
	_, err := results.EnsureSample(path)
	require.NoError(t, err)

	h := &harness{
		t:      t,
		ctx:    context.Background(),
		fake:   channeltest.New(),
		store:  storagetest.New(),
		nextID: 1000,
	}
	m := metrics.New()
	h.posts = posts.New(h.store, h.fake, schoolChan)
	h.engine = New(Config{
		Client:      h.fake,
		Gate:        auth.NewGate(h.fake, schoolChan, secret),
		Posts:       h.posts,
		Broadcast:   broadcast.New(h.store, h.fake, broadcast.Options{Metrics: m}),
		Subscribers: h.store,
		Results:     results.New(path),
		SupportChat: supportChat,
		ChannelURL:  "https://t.me/school",
		ResultsTTL:  time.Minute,
		Metrics:     m,
		Schedule:    func(_ time.Duration, fn func()) { h.tasks = append(h.tasks, fn) },
	})
	h.fake.SetStatus(chatID, tele.Member)
	return h
}

func (h *harness) handle(ev Event) Outcome {
	h.t.Helper()
	ev.ChatID, ev.UserID, ev.Username = chatID, chatID, "abel"
	out, err := h.engine.Handle(h.ctx, ev)
	require.NoError(h.t, err)
	return out
}

func (h *harness) command(name string) Outcome {
	h.t.Helper()
	h.nextID++
	return h.handle(Event{Kind: KindCommand, Command: name, MessageID: h.nextID})
}

// press taps a button on the latest message of the chat.
func (h *harness) press(tag Tag) Outcome {
	h.t.Helper()
	var source int
	if sent := h.fake.SentTo(channel.Chat(chatID)); len(sent) > 0 {
		source = sent[len(sent)-1].Message.ID
	}
	return h.handle(Event{Kind: KindButton, Tag: tag, MessageID: source})
}

func (h *harness) text(s string) (Outcome, int) {
	h.t.Helper()
	h.nextID++
	id := h.nextID
	return h.handle(Event{Kind: KindText, Text: s, MessageID: id}), id
}

func (h *harness) last() channeltest.Sent {
	h.t.Helper()
	sent := h.fake.SentTo(channel.Chat(chatID))
	require.NotEmpty(h.t, sent)
	return sent[len(sent)-1]
}

func (h *harness) lastText() string {
	h.t.Helper()
	return h.last().Content.Text
}

func (h *harness) session() *state.Session {
	h.t.Helper()
	sess, ok := h.engine.Sessions().Peek(chatID)
	require.True(h.t, ok)
	return sess
}

func (h *harness) runTasks() {
	tasks := h.tasks
	h.tasks = nil
	for _, fn := range tasks {
		fn()
	}
}

// uniques lists the callback keys of markup's data buttons, row by row.
func uniques(markup *tele.ReplyMarkup) []string {
	if markup == nil {
		return nil
	}
	var out []string
	for _, row := range markup.InlineKeyboard {
		for _, b := range row {
			if b.Unique != "" {
				out = append(out, b.Unique)
			}
		}
	}
	return out
}

func (h *harness) login() {
	h.t.Helper()
	h.command(CmdAdmin)
	out, _ := h.text(secret)
	require.Equal(h.t, AdminMenu, out.To)
}

func TestDispatchTableCoversEveryState(t *testing.T) {
	table := dispatchTable()
	require.Len(t, table, len(States))

	seen := make(map[Tag]bool)
	for _, st := range States {
		r, ok := table[st]
		require.True(t, ok, st)
		assert.NotNil(t, r.reprompt, st)
		assert.False(t, r.student && r.admin, st)
		for tag := range r.buttons {
			seen[tag] = true
		}
	}
	for _, tag := range Tags() {
		assert.True(t, seen[tag], "tag %s has no handler", tag)
	}
}

func TestParseTag(t *testing.T) {
	for _, tag := range Tags() {
		got, ok := ParseTag(tag.String())
		require.True(t, ok, tag)
		assert.Equal(t, tag, got)
	}
	_, ok := ParseTag("nope")
	assert.False(t, ok)
	_, ok = ParseTag("")
	assert.False(t, ok)
}

func TestStartSubscribesAndAsksToJoin(t *testing.T) {
	h := newHarness(t)
	out := h.command(CmdStart)

	assert.Equal(t, StudentMenu, out.To)
	assert.Equal(t, 1, out.Sent)
	assert.True(t, out.Keyboard)

	subs, err := h.store.ListSubscribers(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{chatID}, subs)

	last := h.last()
	assert.Equal(t, textWelcome, last.Content.Text)
	assert.Equal(t, tele.ModeMarkdown, last.Content.ParseMode)
	assert.Equal(t, []string{"check_join"}, uniques(last.Content.Markup))
	assert.Equal(t, []int{last.Message.ID}, h.session().Tracked(state.TrailScreen))

	// A second start keeps a single subscription.
	h.command(CmdStart)
	subs, _ = h.store.ListSubscribers(h.ctx)
	assert.Len(t, subs, 1)
}

func TestStartSurvivesSubscriberFailure(t *testing.T) {
	h := newHarness(t)
	h.store.Err = fmt.Errorf("disk full")
	out := h.command(CmdStart)
	assert.Equal(t, StudentMenu, out.To)
	assert.Equal(t, textWelcome, h.lastText())
}

func TestScreenKeepsOneMessage(t *testing.T) {
	h := newHarness(t)
	h.command(CmdStart)
	h.press(TagCheckJoin)
	h.press(TagAnnouncements)
	h.press(TagBack)
	h.press(TagAboutSchool)
	h.press(TagBack)

	sent := h.fake.SentTo(channel.Chat(chatID))
	require.Len(t, sent, 6)
	var old []int
	for _, s := range sent[:len(sent)-1] {
		old = append(old, s.Message.ID)
	}
	assert.ElementsMatch(t, old, h.fake.DeletedIDs(chatID))
	assert.Equal(t, []int{sent[len(sent)-1].Message.ID}, h.session().Tracked(state.TrailScreen))
	assert.Equal(t, textMainMenu, h.lastText())
}

func TestButtonsNeedMembership(t *testing.T) {
	h := newHarness(t)
	h.fake.SetStatus(chatID, tele.Left)
	h.command(CmdStart)

	out := h.press(TagResults)
	assert.Equal(t, "denied", out.Result)
	assert.Equal(t, StudentMenu, out.To)
	assert.Equal(t, textJoinFirst, h.lastText())

	out = h.press(TagCheckJoin)
	assert.Equal(t, "denied", out.Result)
	assert.Equal(t, textJoinFirst, h.lastText())

	h.fake.SetStatus(chatID, tele.Member)
	out = h.press(TagCheckJoin)
	assert.Equal(t, "ok", out.Result)
	assert.Equal(t, textJoined, h.lastText())
	assert.Len(t, uniques(h.last().Content.Markup), 5)
}

func TestMembershipLookupFailureDenies(t *testing.T) {
	h := newHarness(t)
	h.command(CmdStart)
	h.fake.SetStatusErr(fmt.Errorf("bad request"))
	out := h.press(TagAboutBot)
	assert.Equal(t, "denied", out.Result)
	assert.Equal(t, textJoinFirst, h.lastText())
}

func TestTextInMenuAsksForButtons(t *testing.T) {
	h := newHarness(t)
	h.command(CmdStart)
	out, id := h.text("hello")
	assert.Equal(t, StudentMenu, out.To)
	assert.Equal(t, textUseButtons, h.lastText())
	assert.Contains(t, h.fake.DeletedIDs(chatID), id)
}

func TestResultsLookup(t *testing.T) {
	h := newHarness(t)
	h.command(CmdStart)

	out := h.press(TagResults)
	require.Equal(t, ResultsName, out.To)
	assert.Equal(t, textAskName, h.lastText())

	out, nameMsg := h.text("  abel tesfaye ")
	require.Equal(t, ResultsID, out.To)
	assert.Contains(t, h.fake.DeletedIDs(chatID), nameMsg)

	out, _ = h.text("std001")
	require.Equal(t, StudentMenu, out.To)
	assert.Equal(t, 2, out.Sent)

	sess := h.session()
	trail := sess.Tracked(state.TrailResults)
	require.Len(t, trail, 2)
	assert.Empty(t, sess.Tracked(state.TrailScreen))
	assert.Empty(t, sess.Scratch)

	text := h.lastText()
	assert.Contains(t, text, "📊 *Results for abel tesfaye*")
	assert.Contains(t, text, "• Math: *95*")
	assert.Contains(t, text, "• Biology: *87*")
	assert.NotContains(t, text, "Economics")
	assert.Contains(t, text, "📈 Total: 452 📊 Average: 90.4%")

	require.Len(t, h.tasks, 1)
	h.runTasks()
	assert.Subset(t, h.fake.DeletedIDs(chatID), trail)
	assert.Empty(t, sess.Tracked(state.TrailResults))
}

func TestResultsExpiryIsDroppedWhenTrailMovedOn(t *testing.T) {
	h := newHarness(t)
	h.command(CmdStart)
	h.press(TagResults)
	h.text("Abel Tesfaye")
	h.text("STD001")
	require.Len(t, h.tasks, 1)

	out := h.press(TagBack)
	require.Equal(t, StudentMenu, out.To)
	deleted := len(h.fake.Deleted())

	h.runTasks()
	assert.Len(t, h.fake.Deleted(), deleted)
	assert.Len(t, h.session().Tracked(state.TrailScreen), 1)
}

func TestResultsNotFound(t *testing.T) {
	h := newHarness(t)
	h.command(CmdStart)
	h.press(TagResults)
	h.text("Nobody")
	out, _ := h.text("X404")

	assert.Equal(t, StudentMenu, out.To)
	assert.Equal(t, textNoResults, h.lastText())
	assert.Len(t, h.session().Tracked(state.TrailResults), 1)
	assert.Empty(t, h.tasks)
}

func TestButtonOutsideStateReprompts(t *testing.T) {
	h := newHarness(t)
	h.command(CmdStart)
	h.press(TagResults)

	out := h.press(TagPost)
	assert.Equal(t, "reprompt", out.Result)
	assert.Equal(t, ResultsName, out.To)
	assert.Equal(t, textAskName, h.lastText())

	out = h.handle(Event{Kind: KindMedia, PhotoID: "photo", MessageID: 4242})
	assert.Equal(t, "reprompt", out.Result)
	assert.Equal(t, ResultsName, out.To)
}

func TestSupportTicket(t *testing.T) {
	h := newHarness(t)
	h.command(CmdStart)

	out := h.press(TagSupport)
	require.Equal(t, SupportIssue, out.To)
	out, _ = h.text("Wi-Fi is down in lab_2")
	require.Equal(t, SupportName, out.To)
	assert.Equal(t, textAskContact, h.lastText())
	out, _ = h.text("Abel Tesfaye")
	require.Equal(t, StudentMenu, out.To)

	tickets := h.fake.SentTo(supportChat)
	require.Len(t, tickets, 1)
	ticket := tickets[0].Content.Text
	assert.Contains(t, ticket, "*NEW SUPPORT TICKET* #")
	assert.Contains(t, ticket, "*Student:* Abel Tesfaye")
	assert.Contains(t, ticket, "*Username:* @abel")
	assert.Contains(t, ticket, `Wi-Fi is down in lab\_2`)

	assert.Equal(t, textTicketSent, h.lastText())
	assert.Empty(t, h.session().Scratch)
}

func TestSupportTicketDeliveryFailure(t *testing.T) {
	h := newHarness(t)
	h.fake.Fail(supportChat)
	h.command(CmdStart)
	h.press(TagSupport)
	h.text("printer jam")
	out, _ := h.text("Abel")

	assert.Equal(t, StudentMenu, out.To)
	assert.Equal(t, textTicketFail, h.lastText())
}

func TestCancelResetsConversation(t *testing.T) {
	h := newHarness(t)
	h.command(CmdStart)
	h.press(TagResults)
	h.text("Abel")
	require.Equal(t, "Abel", h.session().String(keyName))

	out := h.command(CmdCancel)
	assert.Equal(t, StudentMenu, out.To)
	assert.Empty(t, h.session().Scratch)
	assert.Equal(t, textCancelled, h.lastText())
	assert.Len(t, h.session().Tracked(state.TrailScreen), 1)
}

func TestFailedSendKeepsState(t *testing.T) {
	h := newHarness(t)
	h.command(CmdStart)
	h.press(TagResults)

	h.fake.Fail(channel.Chat(chatID))
	h.nextID++
	_, err := h.engine.Handle(h.ctx, Event{Kind: KindText, ChatID: chatID, UserID: chatID, Text: "Abel", MessageID: h.nextID})
	require.Error(t, err)
	assert.Equal(t, ResultsName, h.session().State)
}

func TestAnnouncementsFeed(t *testing.T) {
	h := newHarness(t)
	_, err := h.posts.Create(h.ctx, posts.Draft{Text: "Sports day *Friday*"})
	require.NoError(t, err)
	_, err = h.posts.Create(h.ctx, posts.Draft{PhotoID: "ph1", Text: "Prize giving"})
	require.NoError(t, err)

	h.command(CmdStart)
	h.press(TagAnnouncements)
	text := h.lastText()
	assert.Contains(t, text, textFeedTitle)
	assert.Contains(t, text, "*1.* Prize giving")
	assert.Contains(t, text, `*2.* Sports day \*Friday\*`)
}

func TestAnnouncementsEmpty(t *testing.T) {
	h := newHarness(t)
	h.command(CmdStart)
	h.press(TagAnnouncements)
	assert.Equal(t, textNoFeed, h.lastText())
}

func TestAdminLogin(t *testing.T) {
	h := newHarness(t)

	out := h.command(CmdAdmin)
	require.Equal(t, AdminLogin, out.To)
	assert.Equal(t, textAskPassword, h.lastText())

	out, wrong := h.text("guess")
	assert.Equal(t, "denied", out.Result)
	assert.Equal(t, AdminLogin, out.To)
	assert.Equal(t, textWrongPassword, h.lastText())
	assert.Contains(t, h.fake.DeletedIDs(chatID), wrong)
	assert.False(t, h.session().Admin)

	out, _ = h.text(secret)
	assert.Equal(t, AdminMenu, out.To)
	assert.True(t, h.session().Admin)
	assert.Equal(t, textGranted, h.lastText())
	assert.Equal(t,
		[]string{"post", "edit_post", "delete_post", "logout"},
		uniques(h.last().Content.Markup),
	)
	assert.Len(t, h.session().Tracked(state.TrailAdmin), 1)
}

func TestAdminStatesNeedRole(t *testing.T) {
	h := newHarness(t)
	h.engine.Sessions().Get(chatID).State = AdminMenu

	out := h.press(TagPost)
	assert.Equal(t, "denied", out.Result)
	assert.Equal(t, AdminLogin, out.To)
	assert.Equal(t, textAskPassword, h.lastText())
}

func TestPublishBroadcasts(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.AddSubscriber(h.ctx, 8))
	require.NoError(t, h.store.AddSubscriber(h.ctx, 9))
	h.login()

	out := h.press(TagPost)
	require.Equal(t, AdminPost, out.To)
	assert.Equal(t, textAskPost, h.lastText())

	bold := tele.Entities{{Type: tele.EntityBold, Offset: 0, Length: 4}}
	h.nextID++
	input := h.nextID
	out = h.handle(Event{Kind: KindText, Text: "Exam on Monday", Entities: bold, MessageID: input})
	require.Equal(t, AdminMenu, out.To)

	onChannel := h.fake.SentTo(schoolChan)
	require.Len(t, onChannel, 1)
	assert.Equal(t, "Exam on Monday", onChannel[0].Content.Text)
	assert.Equal(t, bold, onChannel[0].Content.Entities)

	copies := h.fake.SentTo(tele.ChatID(8))
	require.Len(t, copies, 1)
	assert.Equal(t, posts.AnnouncementTitle+"\n\nExam on Monday", copies[0].Content.Text)
	assert.Len(t, h.fake.SentTo(tele.ChatID(9)), 1)

	assert.Equal(t, fmt.Sprintf(textBroadcastDone, 2), h.lastText())
	assert.NotContains(t, h.fake.DeletedIDs(chatID), input)
	assert.Contains(t, h.session().Tracked(state.TrailAdmin), input)

	list, err := h.store.RecentPosts(h.ctx, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Exam on Monday", list[0].Text)
}

func TestPublishPhoto(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.press(TagPost)

	out := h.handle(Event{Kind: KindMedia, PhotoID: "file-1", Text: "Science fair", MessageID: 3000})
	require.Equal(t, AdminMenu, out.To)

	list, err := h.store.RecentPosts(h.ctx, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "file-1", list[0].MediaRef)
	assert.Equal(t, "Science fair", list[0].Caption)
	assert.Empty(t, list[0].Text)
}

func TestPublishRejectsDocuments(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.press(TagPost)

	out := h.handle(Event{Kind: KindMedia, Text: "file attached", MessageID: 3001})
	assert.Equal(t, "reprompt", out.Result)
	assert.Equal(t, AdminPost, out.To)
	assert.Empty(t, h.fake.SentTo(schoolChan))
}

func TestPublishFailure(t *testing.T) {
	h := newHarness(t)
	h.fake.Fail(schoolChan)
	h.login()
	h.press(TagPost)

	out, _ := h.text("Exam")
	assert.Equal(t, AdminMenu, out.To)
	assert.Equal(t, textPublishFail, h.lastText())
	list, _ := h.store.RecentPosts(h.ctx, 5)
	assert.Empty(t, list)
}

func TestEditPost(t *testing.T) {
	h := newHarness(t)
	p, err := h.posts.Create(h.ctx, posts.Draft{Text: "Old text"})
	require.NoError(t, err)
	h.login()

	out := h.press(TagEditPost)
	require.Equal(t, AdminEdit, out.To)
	assert.Contains(t, h.lastText(), "1. Old text")

	out, _ = h.text("3")
	assert.Equal(t, "reprompt", out.Result)
	assert.Equal(t, AdminEdit, out.To)
	assert.Equal(t, textInvalidNumber, h.lastText())

	out, _ = h.text("1")
	assert.Equal(t, AdminEdit, out.To)
	assert.Equal(t, textAskNewText, h.lastText())

	out, _ = h.text("New text")
	assert.Equal(t, AdminMenu, out.To)
	assert.Equal(t, textEdited, h.lastText())

	edits := h.fake.Edited()
	require.Len(t, edits, 1)
	assert.Equal(t, p.ChannelMessageID, edits[0].Message.ID)
	assert.Equal(t, "New text", edits[0].Content.Text)

	got, err := h.store.GetPost(h.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "New text", got.Text)
}

func TestEditNumberReselects(t *testing.T) {
	h := newHarness(t)
	first, err := h.posts.Create(h.ctx, posts.Draft{Text: "first"})
	require.NoError(t, err)
	_, err = h.posts.Create(h.ctx, posts.Draft{Text: "second"})
	require.NoError(t, err)
	h.login()
	h.press(TagEditPost)

	h.text("1")
	out, _ := h.text("2")
	assert.Equal(t, AdminEdit, out.To)
	assert.Equal(t, textAskNewText, h.lastText())
	assert.Empty(t, h.fake.Edited())

	out, _ = h.text("9")
	assert.Equal(t, "reprompt", out.Result)
	assert.Equal(t, textInvalidNumber, h.lastText())

	out, _ = h.text("Fixed")
	assert.Equal(t, AdminMenu, out.To)
	edits := h.fake.Edited()
	require.Len(t, edits, 1)
	assert.Equal(t, first.ChannelMessageID, edits[0].Message.ID)
	got, err := h.store.GetPost(h.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fixed", got.Text)
}

func TestEditWithoutSelection(t *testing.T) {
	h := newHarness(t)
	_, err := h.posts.Create(h.ctx, posts.Draft{Text: "Old"})
	require.NoError(t, err)
	h.login()
	h.press(TagEditPost)

	out, _ := h.text("hello")
	assert.Equal(t, AdminMenu, out.To)
	assert.Equal(t, textNoSelection, h.lastText())
}

func TestEditChannelFailure(t *testing.T) {
	h := newHarness(t)
	_, err := h.posts.Create(h.ctx, posts.Draft{Text: "Old"})
	require.NoError(t, err)
	h.fake.FailEdit(fmt.Errorf("message can't be edited"))
	h.login()
	h.press(TagEditPost)
	h.text("1")

	out, _ := h.text("New")
	assert.Equal(t, AdminMenu, out.To)
	assert.Equal(t, textEditFail, h.lastText())
}

func TestEditWithNoPosts(t *testing.T) {
	h := newHarness(t)
	h.login()
	out := h.press(TagEditPost)
	assert.Equal(t, AdminMenu, out.To)
	assert.Equal(t, textNoPostsEdit, h.lastText())
}

func TestDeletePost(t *testing.T) {
	h := newHarness(t)
	first, err := h.posts.Create(h.ctx, posts.Draft{Text: "first"})
	require.NoError(t, err)
	second, err := h.posts.Create(h.ctx, posts.Draft{Text: "second"})
	require.NoError(t, err)
	h.login()

	out := h.press(TagDeletePost)
	require.Equal(t, AdminDelete, out.To)
	assert.Contains(t, h.lastText(), "1. second\n2. first")

	out, _ = h.text("abc")
	assert.Equal(t, "reprompt", out.Result)
	assert.Equal(t, textDeleteNumber, h.lastText())

	out, _ = h.text("0")
	assert.Equal(t, AdminDelete, out.To)
	assert.Equal(t, textInvalidNumber, h.lastText())

	out, _ = h.text("1")
	assert.Equal(t, AdminMenu, out.To)
	assert.Equal(t, textDeleted, h.lastText())
	assert.Contains(t, h.fake.DeletedIDs(h.fake.ChannelChatID), second.ChannelMessageID)

	list, err := h.store.RecentPosts(h.ctx, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestDeleteVanishedPost(t *testing.T) {
	h := newHarness(t)
	p, err := h.posts.Create(h.ctx, posts.Draft{Text: "only"})
	require.NoError(t, err)
	h.login()
	h.press(TagDeletePost)
	require.NoError(t, h.store.DeletePost(h.ctx, p.ID))

	out, _ := h.text("1")
	assert.Equal(t, AdminMenu, out.To)
	assert.Equal(t, textNoSelection, h.lastText())
}

func TestAdminBackReturnsToMenu(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.press(TagPost)

	out := h.press(TagBackAdmin)
	assert.Equal(t, AdminMenu, out.To)
	assert.Equal(t, textAdminMenu, h.lastText())
	assert.Len(t, h.session().Tracked(state.TrailAdmin), 1)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login()

	out := h.press(TagLogout)
	assert.Equal(t, StudentMenu, out.To)
	assert.False(t, h.session().Admin)
	assert.Equal(t, textLoggedOut, h.lastText())
	assert.Empty(t, h.session().Tracked(state.TrailAdmin))
	assert.Len(t, h.session().Tracked(state.TrailScreen), 1)
}

func TestHandleRejectsEventWithoutChat(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Handle(h.ctx, Event{Kind: KindText, Text: "hi"})
	require.Error(t, err)
}
