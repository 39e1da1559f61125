package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/metrics"
	"github.com/m3rciful/woofinder/core/state"
)

// maxReentries bounds chained Reenter transitions within one event.
const maxReentries = 3

const component = "wizard"

var errNilEvent = errors.New("wizard: nil event")

// Engine drives conversations through registered scenes.
type Engine struct {
	store   state.Store
	metrics *metrics.Metrics

	mu     sync.RWMutex
	scenes map[SceneID]Scene
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithMetrics records transitions and step failures.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine builds an engine persisting sessions in store.
func NewEngine(store state.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  store,
		scenes: make(map[SceneID]Scene),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds scenes. Ids must be unique.
func (e *Engine) Register(scenes ...Scene) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sc := range scenes {
		if sc == nil {
			continue
		}
		if _, exists := e.scenes[sc.ID()]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateScene, sc.ID())
		}
		e.scenes[sc.ID()] = sc
	}
	return nil
}

// Has reports whether id is registered.
func (e *Engine) Has(id SceneID) bool {
	_, err := e.lookup(id)
	return err == nil
}

func (e *Engine) lookup(id SceneID) (Scene, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sc, ok := e.scenes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScene, id)
	}
	return sc, nil
}

// Active reports whether the conversation is inside a scene.
func (e *Engine) Active(ctx context.Context, key state.Key) (bool, error) {
	_, found, err := e.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load session %s: %w", key, err)
	}
	return found, nil
}

// Enter starts scene id for the conversation, replacing any session, and runs
// step 0 with an Enter event. seed initialises the form accumulator. When
// step 0 fails nothing is persisted.
func (e *Engine) Enter(ctx context.Context, req Request, id SceneID, seed any) error {
	ctx = logger.WithScene(ctx, string(id))
	sc, err := e.lookup(id)
	if err != nil {
		e.metrics.RecordSceneEntry(string(id), err)
		return err
	}
	form, err := encodeSeed(seed)
	if err != nil {
		e.metrics.RecordSceneEntry(string(id), err)
		return err
	}

	logger.Debug(ctx, component, "scene.enter", slog.String("status", "ok"))
	sess := state.Session{SceneID: string(id), Step: 0, Form: form}
	err = e.advance(ctx, req, sc, sess, Enter{}, nil, 0)
	e.metrics.RecordSceneEntry(string(id), err)
	return err
}

// Handle routes an event to the current step of the active scene.
func (e *Engine) Handle(ctx context.Context, req Request) error {
	if req.Event == nil {
		return errNilEvent
	}
	sess, found, err := e.store.Get(ctx, req.Conversation)
	if err != nil {
		return fmt.Errorf("load session %s: %w", req.Conversation, err)
	}
	if !found {
		return ErrNoActiveScene
	}
	ctx = logger.WithScene(ctx, sess.SceneID)

	sc, err := e.lookup(SceneID(sess.SceneID))
	if err != nil {
		e.discard(ctx, req.Conversation, "unknown_scene")
		return err
	}
	if sess.Step < 0 || sess.Step >= sc.Len() {
		e.discard(ctx, req.Conversation, "step_out_of_range")
		return fmt.Errorf("%w: %d in %s", ErrInvalidStep, sess.Step, sc.ID())
	}
	return e.advance(ctx, req, sc, sess, req.Event, sess.Transient, 0)
}

// Abort clears the conversation's session, if any.
func (e *Engine) Abort(ctx context.Context, key state.Key) error {
	if err := e.store.Clear(ctx, key); err != nil {
		return fmt.Errorf("clear session %s: %w", key, err)
	}
	return nil
}

// advance runs the step at sess.Step and applies the transition it returns.
// Nothing is written when the step fails.
func (e *Engine) advance(ctx context.Context, req Request, sc Scene, sess state.Session, ev Event, carried map[string]string, reentries int) error {
	index := sess.Step
	out, err := sc.run(ctx, stepInput{
		req:     req,
		index:   index,
		event:   ev,
		form:    sess.Form,
		carried: carried,
	})
	if err != nil {
		name := sc.StepName(index)
		e.metrics.RecordStepError(string(sc.ID()), name)
		logger.Warn(ctx, component, "step.failed",
			slog.String("status", "fail"),
			slog.Int("step", index),
			slog.String("step_name", name),
			slog.String("event_kind", string(ev.Kind())),
			logger.Err(err),
		)
		return &StepError{Scene: sc.ID(), Step: name, Index: index, Err: err}
	}

	next := sess
	next.Form = out.form
	next.Transient = out.carry

	tr := out.transition
	switch tr.kind {
	case transNext:
		if index+1 >= sc.Len() {
			e.record(ctx, sc, index, "finish")
			return e.Abort(ctx, req.Conversation)
		}
		next.Step = index + 1
	case transBack:
		next.Step = max(index-1, 0)
	case transSelect:
		if tr.target < 0 || tr.target >= sc.Len() {
			return fmt.Errorf("%w: %s selected %d of %d", ErrInvalidStep, sc.ID(), tr.target, sc.Len())
		}
		next.Step = tr.target
	case transReenter:
		if reentries >= maxReentries {
			return fmt.Errorf("%w: %s", ErrReentryLimit, sc.ID())
		}
		e.record(ctx, sc, index, tr.Name())
		next.Step = 0
		return e.advance(ctx, req, sc, next, Enter{}, out.carry, reentries+1)
	case transLeave:
		e.record(ctx, sc, index, tr.Name())
		return e.Abort(ctx, req.Conversation)
	}

	e.record(ctx, sc, index, tr.Name())
	if err := e.store.Put(ctx, req.Conversation, next); err != nil {
		return fmt.Errorf("save session %s: %w", req.Conversation, err)
	}
	return nil
}

func (e *Engine) record(ctx context.Context, sc Scene, from int, transition string) {
	e.metrics.RecordTransition(string(sc.ID()), transition)
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, component, "step.transition",
			slog.String("status", "ok"),
			slog.Int("step", from),
			slog.String("step_name", sc.StepName(from)),
			slog.String("transition", transition),
		)
	}
}

func (e *Engine) discard(ctx context.Context, key state.Key, reason string) {
	err := e.Abort(ctx, key)
	attrs := []slog.Attr{slog.String("status", "skip"), slog.String("reason", reason)}
	if err != nil {
		attrs = append(attrs, logger.Err(err))
	}
	logger.Warn(ctx, component, "session.discarded", attrs...)
}
