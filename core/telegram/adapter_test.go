package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/woofinder/core/state"
	"github.com/m3rciful/woofinder/core/telegram/commands"
	"github.com/m3rciful/woofinder/core/wizard"

	tele "gopkg.in/telebot.v4"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot
}

func messageUpdate(m *tele.Message) tele.Update {
	if m.Sender == nil {
		m.Sender = &tele.User{ID: 7, FirstName: "Ann", Username: "ann_k"}
	}
	if m.Chat == nil {
		m.Chat = &tele.Chat{ID: 7, Type: tele.ChatPrivate}
	}
	return tele.Update{ID: 1, Message: m}
}

func TestEventFromContext(t *testing.T) {
	bot := offlineBot(t)
	cases := []struct {
		name string
		msg  *tele.Message
		want wizard.Event
	}{
		{"text", &tele.Message{Text: "Rex"}, wizard.Text{Content: "Rex"}},
		{"command with bot name", &tele.Message{Text: "/Pets@woofinder_bot now"}, wizard.Command{Name: "pets", Args: "now"}},
		{"location", &tele.Message{Location: &tele.Location{Lat: 59.5, Lng: 24.75}}, wizard.Location{Lat: 59.5, Lon: 24.75}},
		{"contact", &tele.Message{Contact: &tele.Contact{PhoneNumber: "+372", FirstName: "Ann", UserID: 7}},
			wizard.Contact{Phone: "+372", FirstName: "Ann", UserID: 7}},
		{"photo", &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: "ph1"}}}, wizard.Photo{FileRef: "ph1"}},
		{"document", &tele.Message{Document: &tele.Document{File: tele.File{FileID: "doc1"}, FileName: "rex.png"}},
			wizard.Document{FileRef: "doc1", FileName: "rex.png"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, ok := EventFromContext(bot.NewContext(messageUpdate(tc.msg)))
			require.True(t, ok)
			assert.Equal(t, tc.want, ev)
		})
	}
}

func TestEventFromContextIgnoresEmptyMessages(t *testing.T) {
	bot := offlineBot(t)
	_, ok := EventFromContext(bot.NewContext(messageUpdate(&tele.Message{})))
	assert.False(t, ok)

	_, ok = EventFromContext(bot.NewContext(tele.Update{ID: 2}))
	assert.False(t, ok)
}

func TestEventFromContextCallback(t *testing.T) {
	bot := offlineBot(t)
	u := tele.Update{ID: 3, Callback: &tele.Callback{
		ID:     "cb",
		Data:   "pet:42",
		Sender: &tele.User{ID: 7},
	}}
	ev, ok := EventFromContext(bot.NewContext(u))
	require.True(t, ok)
	assert.Equal(t, wizard.Callback{Data: "pet:42"}, ev)
}

func TestNewRequestKeysConversation(t *testing.T) {
	bot := offlineBot(t)
	req, ok := NewRequest(bot.NewContext(messageUpdate(&tele.Message{
		Text: "hi",
		Chat: &tele.Chat{ID: -100, Type: tele.ChatGroup},
	})))
	require.True(t, ok)
	assert.Equal(t, state.Key{UserID: 7, ChatID: -100}, req.Conversation)
	require.NotNil(t, req.Sender)
	assert.Equal(t, "ann_k", req.Sender.Username)
	assert.NotNil(t, req.Out)
	assert.NotNil(t, req.Files)
}

type sent struct {
	what interface{}
	opts *tele.SendOptions
}

func recordSends(out *[]sent) func(interface{}, *tele.SendOptions) error {
	return func(what interface{}, opts *tele.SendOptions) error {
		*out = append(*out, sent{what: what, opts: opts})
		return nil
	}
}

func TestDeliverHTMLWithButtons(t *testing.T) {
	var out []sent
	msg := wizard.HTML("<b>Pick</b>").WithButtons(wizard.Button{Label: "Rex", Data: "pet:1"})
	require.NoError(t, deliver(recordSends(&out), msg))

	require.Len(t, out, 1)
	assert.Equal(t, "<b>Pick</b>", out[0].what)
	assert.Equal(t, tele.ModeHTML, out[0].opts.ParseMode)
	require.NotNil(t, out[0].opts.ReplyMarkup)
	assert.Equal(t, "pet:1", out[0].opts.ReplyMarkup.InlineKeyboard[0][0].Data)
}

func TestDeliverLocationSendsTextFirst(t *testing.T) {
	var out []sent
	msg := wizard.Plain("Last seen here")
	msg.Location = &wizard.Point{Lat: 59.4, Lon: 24.7}
	require.NoError(t, deliver(recordSends(&out), msg))

	require.Len(t, out, 2)
	assert.Equal(t, "Last seen here", out[0].what)
	loc, ok := out[1].what.(*tele.Location)
	require.True(t, ok)
	assert.InDelta(t, 59.4, float64(loc.Lat), 1e-4)
	assert.InDelta(t, 24.7, float64(loc.Lng), 1e-4)
}

func TestDeliverPhotoWithCaption(t *testing.T) {
	var out []sent
	msg := wizard.Plain("Rex")
	msg.PhotoRef = "ph1"
	require.NoError(t, deliver(recordSends(&out), msg))

	require.Len(t, out, 1)
	photo, ok := out[0].what.(*tele.Photo)
	require.True(t, ok)
	assert.Equal(t, "ph1", photo.FileID)
	assert.Equal(t, "Rex", photo.Caption)
}

func TestDeliverEmptyMessage(t *testing.T) {
	err := deliver(func(interface{}, *tele.SendOptions) error { return nil }, wizard.Message{})
	assert.ErrorIs(t, err, errEmptyMessage)
}

func TestDeliverWrapsSendError(t *testing.T) {
	boom := errors.New("boom")
	err := deliver(func(interface{}, *tele.SendOptions) error { return boom }, wizard.Plain("x"))
	assert.ErrorIs(t, err, boom)
}

type stubFiles map[string]bool

func (s stubFiles) FileByID(id string) (tele.File, error) {
	if s[id] {
		return tele.File{FileID: id}, nil
	}
	return tele.File{}, errors.New("file not found")
}

func TestFileResolver(t *testing.T) {
	ctx := context.Background()
	r := NewFileResolver(stubFiles{"ok": true})
	assert.NoError(t, r.ResolveFile(ctx, "ok"))
	assert.Error(t, r.ResolveFile(ctx, "missing"))

	assert.Error(t, NewFileResolver(nil).ResolveFile(ctx, "ok"))
}

func TestRegistryFromTriggers(t *testing.T) {
	noop := func(context.Context, wizard.Request) error { return nil }
	reg := NewRegistry()
	reg.RegisterTriggers([]wizard.Trigger{
		{Kind: wizard.TriggerCommand, Token: "start", Description: "Welcome", Handler: noop},
		{Kind: wizard.TriggerCommand, Token: "stats", Description: "Counters", Handler: noop, AdminOnly: true, Hidden: true},
		{Kind: wizard.TriggerCommand, Token: "silent", Handler: noop},
		{Kind: wizard.TriggerAction, Token: "pet_register", Title: "Register", Scene: "pet_registration"},
	})

	assert.Len(t, reg.Commands(), 2)
	assert.Equal(t, []tele.Command{{Text: "start", Description: "Welcome"}}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 2)

	name, cmd, ok := reg.LookupCommand("stats")
	require.True(t, ok)
	assert.Equal(t, "/stats", name)
	assert.True(t, cmd.AdminOnly)

	reg.RegisterCommand("/start", cmd)
	_, start, _ := reg.LookupCommand("/start")
	assert.Equal(t, "Welcome", start.Description)
}

type recordingSetter struct {
	got []interface{}
	err error
}

func (r *recordingSetter) SetCommands(opts ...interface{}) error {
	r.got = opts
	return r.err
}

func TestSetupCommandsPublishesVisibleOnly(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/pets", commands.Command{Description: "Pets"})
	reg.RegisterCommand("/stats", commands.Command{Description: "Stats", AdminOnly: true})

	setter := &recordingSetter{}
	SetupCommands(setter, reg)
	require.Len(t, setter.got, 1)
	assert.Equal(t, []tele.Command{{Text: "pets", Description: "Pets"}}, setter.got[0])
}
