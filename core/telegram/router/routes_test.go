package router

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/woofinder/core/wizard"

	tele "gopkg.in/telebot.v4"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	reqs []wizard.Request
	err  error
}

func (r *recordingDispatcher) Submit(_ context.Context, req wizard.Request, done func(error)) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	if done != nil {
		done(nil)
	}
	return nil
}

func syncBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	return bot
}

func textUpdate(id int, text string) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		Text:   text,
		Sender: &tele.User{ID: 7, FirstName: "Ann"},
		Chat:   &tele.Chat{ID: 7, Type: tele.ChatPrivate},
	}}
}

func TestMessageRoutesSubmitInUpdateOrder(t *testing.T) {
	bot := syncBot(t)
	d := &recordingDispatcher{}
	for _, r := range MessageRoutes(d) {
		bot.Handle(r.Endpoint, r.Handler)
	}

	for i := range 20 {
		bot.ProcessUpdate(textUpdate(i+1, strconv.Itoa(i)))
	}

	require.Len(t, d.reqs, 20)
	for i, req := range d.reqs {
		assert.Equal(t, wizard.Text{Content: strconv.Itoa(i)}, req.Event)
	}
}

func TestDispatchHandlerReturnsSubmitError(t *testing.T) {
	bot := syncBot(t)
	d := &recordingDispatcher{err: wizard.ErrBacklogFull}
	err := dispatchHandler(d, "text")(bot.NewContext(textUpdate(1, "hi")))
	assert.ErrorIs(t, err, wizard.ErrBacklogFull)
}

type staleCallback struct {
	tele.Context
}

func (staleCallback) Respond(...*tele.CallbackResponse) error {
	return errors.New("query is too old")
}

func TestCallbackRouteDispatchesWhenRespondFails(t *testing.T) {
	bot := syncBot(t)
	d := &recordingDispatcher{}
	c := staleCallback{bot.NewContext(tele.Update{ID: 1, Callback: &tele.Callback{
		ID:     "cb",
		Data:   "pet:42",
		Sender: &tele.User{ID: 7},
	}})}

	require.NoError(t, CallbackRoute(d).Handler(c))
	require.Len(t, d.reqs, 1)
	assert.Equal(t, wizard.Callback{Data: "pet:42"}, d.reqs[0].Event)
}
