package wizard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/woofinder/core/state"
	"github.com/m3rciful/woofinder/core/wizard"
	"github.com/m3rciful/woofinder/core/wizard/wizardtest"
)

type petForm struct {
	Name string `json:"name,omitempty"`
	Age  string `json:"age,omitempty"`
}

var errBoom = errors.New("boom")

func petScene() wizard.Scene {
	return wizard.NewScene[petForm]("test_pet",
		wizard.Step[petForm]{Name: "intro", Run: func(ctx context.Context, t *wizard.Turn[petForm]) (wizard.Transition, error) {
			if v, ok := t.Carried("note"); ok {
				if err := t.Reply(ctx, wizard.Plain("note:"+v)); err != nil {
					return wizard.Transition{}, err
				}
			}
			return wizard.Next(), t.Reply(ctx, wizard.Plain("name?"))
		}},
		wizard.Step[petForm]{Name: "name", Run: func(ctx context.Context, t *wizard.Turn[petForm]) (wizard.Transition, error) {
			if wizard.IsExit(t.Event) {
				return wizard.Leave(), t.Reply(ctx, wizard.Plain("bye"))
			}
			text, ok := t.Text()
			if !ok {
				return t.Stay(), t.Reply(ctx, wizard.Plain("text please"))
			}
			switch text {
			case "fail":
				t.Form.Name = "should not persist"
				return wizard.Transition{}, errBoom
			case "bad":
				return t.Stay(), t.Reply(ctx, wizard.Plain("invalid"))
			}
			t.Form.Name = text
			t.Carry("echo", text)
			return wizard.Next(), t.Reply(ctx, wizard.Plain("age?"))
		}},
		wizard.Step[petForm]{Name: "age", Run: func(ctx context.Context, t *wizard.Turn[petForm]) (wizard.Transition, error) {
			text, _ := t.Text()
			switch {
			case wizard.IsBack(t.Event):
				return wizard.Back(), t.Reply(ctx, wizard.Plain("name?"))
			case text == "again":
				t.Carry("note", "restarting")
				return wizard.Reenter(), nil
			case text == "jump":
				return wizard.SelectStep(9), nil
			case text == "echo":
				v, _ := t.Carried("echo")
				return t.Stay(), t.Reply(ctx, wizard.Plain("echo:"+v))
			}
			t.Form.Age = text
			return wizard.Next(), t.Reply(ctx, wizard.Plain("done "+t.Form.Name+" "+t.Form.Age))
		}},
	)
}

func newEngine(t *testing.T, scenes ...wizard.Scene) (*wizard.Engine, state.Store) {
	t.Helper()
	store := state.NewMemoryStore()
	eng := wizard.NewEngine(store)
	require.NoError(t, eng.Register(scenes...))
	return eng, store
}

func session(t *testing.T, store state.Store, conv *wizardtest.Conversation) (state.Session, bool) {
	t.Helper()
	sess, found, err := store.Get(context.Background(), conv.Key())
	require.NoError(t, err)
	return sess, found
}

func TestEnterRunsEntryStepAndAdvances(t *testing.T) {
	ctx := context.Background()
	eng, store := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")

	require.NoError(t, eng.Enter(ctx, conv.Request(wizard.Enter{}), "test_pet", nil))
	assert.Equal(t, []string{"name?"}, conv.Out.Texts())

	sess, found := session(t, store, conv)
	require.True(t, found)
	assert.Equal(t, "test_pet", sess.SceneID)
	assert.Equal(t, 1, sess.Step)
}

func TestEnterSeedsForm(t *testing.T) {
	ctx := context.Background()
	eng, store := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")

	require.NoError(t, eng.Enter(ctx, conv.Request(wizard.Enter{}), "test_pet", petForm{Name: "Seeded"}))
	sess, _ := session(t, store, conv)
	assert.JSONEq(t, `{"name":"Seeded"}`, string(sess.Form))
}

func TestEnterUnknownScene(t *testing.T) {
	eng, _ := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")
	err := eng.Enter(context.Background(), conv.Request(wizard.Enter{}), "nope", nil)
	assert.ErrorIs(t, err, wizard.ErrUnknownScene)
}

func TestEnterFailurePersistsNothing(t *testing.T) {
	failing := wizard.NewScene[petForm]("failing",
		wizard.Step[petForm]{Name: "intro", Run: func(context.Context, *wizard.Turn[petForm]) (wizard.Transition, error) {
			return wizard.Transition{}, errBoom
		}},
	)
	eng, store := newEngine(t, failing)
	conv := wizardtest.NewConversation(1, "Ann")

	err := eng.Enter(context.Background(), conv.Request(wizard.Enter{}), "failing", nil)
	require.ErrorIs(t, err, errBoom)
	var stepErr *wizard.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "intro", stepErr.Step)

	_, found := session(t, store, conv)
	assert.False(t, found)
}

func TestHandleWithoutSession(t *testing.T) {
	eng, _ := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")
	err := eng.Handle(context.Background(), conv.Text("Rex"))
	assert.ErrorIs(t, err, wizard.ErrNoActiveScene)
}

func TestFullRunFinishesAndClearsSession(t *testing.T) {
	ctx := context.Background()
	eng, store := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")

	require.NoError(t, eng.Enter(ctx, conv.Request(wizard.Enter{}), "test_pet", nil))
	require.NoError(t, eng.Handle(ctx, conv.Text("Rex")))

	sess, _ := session(t, store, conv)
	assert.Equal(t, 2, sess.Step)
	assert.JSONEq(t, `{"name":"Rex"}`, string(sess.Form))

	require.NoError(t, eng.Handle(ctx, conv.Text("4")))
	assert.Equal(t, "done Rex 4", conv.Out.LastText())

	_, found := session(t, store, conv)
	assert.False(t, found, "next past the last step ends the scene")
}

func TestInvalidInputKeepsSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	eng, store := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")
	require.NoError(t, eng.Enter(ctx, conv.Request(wizard.Enter{}), "test_pet", nil))

	before, _ := session(t, store, conv)
	for i := 0; i < 3; i++ {
		require.NoError(t, eng.Handle(ctx, conv.Text("bad")))
		after, _ := session(t, store, conv)
		assert.Equal(t, before.Step, after.Step)
		assert.Equal(t, string(before.Form), string(after.Form))
	}
	assert.Equal(t, []string{"name?", "invalid", "invalid", "invalid"}, conv.Out.Texts())
}

func TestWrongEventKindReprompts(t *testing.T) {
	ctx := context.Background()
	eng, store := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")
	require.NoError(t, eng.Enter(ctx, conv.Request(wizard.Enter{}), "test_pet", nil))

	require.NoError(t, eng.Handle(ctx, conv.Request(wizard.Location{Lat: 1, Lon: 2})))
	assert.Equal(t, "text please", conv.Out.LastText())
	sess, _ := session(t, store, conv)
	assert.Equal(t, 1, sess.Step)
}

func TestStepErrorLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	eng, store := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")
	require.NoError(t, eng.Enter(ctx, conv.Request(wizard.Enter{}), "test_pet", nil))
	before, _ := session(t, store, conv)

	err := eng.Handle(ctx, conv.Text("fail"))
	require.ErrorIs(t, err, errBoom)

	after, found := session(t, store, conv)
	require.True(t, found)
	assert.Equal(t, before.Step, after.Step)
	assert.Equal(t, string(before.Form), string(after.Form))

	require.NoError(t, eng.Handle(ctx, conv.Text("Rex")), "the failed step can be retried")
}

func TestExitLeaves(t *testing.T) {
	ctx := context.Background()
	eng, store := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")
	require.NoError(t, eng.Enter(ctx, conv.Request(wizard.Enter{}), "test_pet", nil))

	require.NoError(t, eng.Handle(ctx, conv.Text("  EXIT ")))
	assert.Equal(t, "bye", conv.Out.LastText())
	_, found := session(t, store, conv)
	assert.False(t, found)
}

func TestBackKeepsFormAndDoesNotRerunTarget(t *testing.T) {
	ctx := context.Background()
	eng, store := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")
	require.NoError(t, eng.Enter(ctx, conv.Request(wizard.Enter{}), "test_pet", nil))
	require.NoError(t, eng.Handle(ctx, conv.Text("Rex")))
	conv.Out.Reset()

	require.NoError(t, eng.Handle(ctx, conv.Text("back")))
	assert.Equal(t, []string{"name?"}, conv.Out.Texts())

	sess, _ := session(t, store, conv)
	assert.Equal(t, 1, sess.Step)
	assert.JSONEq(t, `{"name":"Rex"}`, string(sess.Form))
}

func TestSelectOutOfRangeIsRejected(t *testing.T) {
	ctx := context.Background()
	eng, store := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")
	require.NoError(t, eng.Enter(ctx, conv.Request(wizard.Enter{}), "test_pet", nil))
	require.NoError(t, eng.Handle(ctx, conv.Text("Rex")))

	err := eng.Handle(ctx, conv.Text("jump"))
	assert.ErrorIs(t, err, wizard.ErrInvalidStep)
	sess, _ := session(t, store, conv)
	assert.Equal(t, 2, sess.Step)
}

func TestReenterRunsEntryStepWithCarriedValues(t *testing.T) {
	ctx := context.Background()
	eng, store := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")
	require.NoError(t, eng.Enter(ctx, conv.Request(wizard.Enter{}), "test_pet", nil))
	require.NoError(t, eng.Handle(ctx, conv.Text("Rex")))
	conv.Out.Reset()

	require.NoError(t, eng.Handle(ctx, conv.Text("again")))
	assert.Equal(t, []string{"note:restarting", "name?"}, conv.Out.Texts())

	sess, _ := session(t, store, conv)
	assert.Equal(t, 1, sess.Step)
	assert.JSONEq(t, `{"name":"Rex"}`, string(sess.Form), "re-entry keeps the form")
}

func TestReenterIsCapped(t *testing.T) {
	loop := wizard.NewScene[petForm]("loop",
		wizard.Step[petForm]{Name: "intro", Run: func(context.Context, *wizard.Turn[petForm]) (wizard.Transition, error) {
			return wizard.Reenter(), nil
		}},
	)
	eng, store := newEngine(t, loop)
	conv := wizardtest.NewConversation(1, "Ann")

	err := eng.Enter(context.Background(), conv.Request(wizard.Enter{}), "loop", nil)
	assert.ErrorIs(t, err, wizard.ErrReentryLimit)
	_, found := session(t, store, conv)
	assert.False(t, found)
}

func TestTransientSurvivesOneBoundary(t *testing.T) {
	ctx := context.Background()
	eng, store := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")
	require.NoError(t, eng.Enter(ctx, conv.Request(wizard.Enter{}), "test_pet", nil))
	require.NoError(t, eng.Handle(ctx, conv.Text("Rex")))

	sess, _ := session(t, store, conv)
	assert.Equal(t, "Rex", sess.Transient["echo"])

	require.NoError(t, eng.Handle(ctx, conv.Text("echo")))
	assert.Equal(t, "echo:Rex", conv.Out.LastText())

	require.NoError(t, eng.Handle(ctx, conv.Text("echo")))
	assert.Equal(t, "echo:", conv.Out.LastText(), "values not carried again are dropped")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	eng := wizard.NewEngine(state.NewMemoryStore())
	require.NoError(t, eng.Register(petScene()))
	assert.ErrorIs(t, eng.Register(petScene()), wizard.ErrDuplicateScene)
}

func TestNewScenePanicsWithoutSteps(t *testing.T) {
	assert.Panics(t, func() { wizard.NewScene[petForm]("empty") })
	assert.Panics(t, func() { wizard.NewScene[petForm]("nil", wizard.Step[petForm]{Name: "x"}) })
}

func TestStaleSessionForUnknownSceneIsDiscarded(t *testing.T) {
	ctx := context.Background()
	eng, store := newEngine(t, petScene())
	conv := wizardtest.NewConversation(1, "Ann")
	require.NoError(t, store.Put(ctx, conv.Key(), state.Session{SceneID: "removed_scene"}))

	err := eng.Handle(ctx, conv.Text("hi"))
	assert.ErrorIs(t, err, wizard.ErrUnknownScene)
	_, found := session(t, store, conv)
	assert.False(t, found)
}
