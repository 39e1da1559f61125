package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/m3rciful/woofinder/core/logger"
	"github.com/m3rciful/woofinder/core/metrics"
)

// TriggerKind tells where a trigger token is matched.
type TriggerKind uint8

const (
	// TriggerCommand matches a slash command name.
	TriggerCommand TriggerKind = iota + 1
	// TriggerAction matches the token of a callback's data.
	TriggerAction
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerCommand:
		return "command"
	case TriggerAction:
		return "action"
	}
	return "unknown"
}

// HandlerFunc handles a request outside any scene.
type HandlerFunc func(ctx context.Context, req Request) error

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// Trigger binds a command or action token to either a scene or a stateless handler.
type Trigger struct {
	Kind  TriggerKind
	Token string
	// Title labels the button that fires an action trigger.
	Title string
	// Description is shown in the command menu.
	Description string
	Scene       SceneID
	Handler     HandlerFunc
	AdminOnly   bool
	Hidden      bool
}

// Button returns the inline button firing an action trigger.
func (t Trigger) Button() Button {
	return Button{Label: t.Title, Data: t.Token}
}

// DispatcherOptions configures NewDispatcher.
type DispatcherOptions struct {
	// AdminID is the only user allowed to fire AdminOnly triggers. Zero denies everyone.
	AdminID int64
	// Fallback answers events no scene or trigger claims.
	Fallback HandlerFunc
	Metrics  *metrics.Metrics

	InternalError   Message
	MissingIdentity Message
	Forbidden       Message
}

// Dispatcher serialises events per conversation and routes them to the
// engine, a trigger, or the fallback.
type Dispatcher struct {
	engine      *Engine
	opts        DispatcherOptions
	commands    map[string]Trigger
	actions     map[string]Trigger
	middlewares []Middleware
	locks       *keyLocks
	queues      *queues
}

// NewDispatcher builds a dispatcher on top of engine.
func NewDispatcher(engine *Engine, opts DispatcherOptions) *Dispatcher {
	if opts.InternalError.Text == "" {
		opts.InternalError = Plain("😔 There has been an internal error. Please try again later!")
	}
	if opts.MissingIdentity.Text == "" {
		opts.MissingIdentity = Plain("⚠️ There has been an error. Please try again later.")
	}
	return &Dispatcher{
		engine:   engine,
		opts:     opts,
		commands: make(map[string]Trigger),
		actions:  make(map[string]Trigger),
		locks:    newKeyLocks(),
		queues:   newQueues(),
	}
}

// Register adds triggers. Tokens must be unique per kind and scenes must exist.
func (d *Dispatcher) Register(triggers ...Trigger) error {
	for _, t := range triggers {
		token := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t.Token), "/"))
		if token == "" {
			return fmt.Errorf("wizard: trigger without token")
		}
		if (t.Scene == "") == (t.Handler == nil) {
			return fmt.Errorf("wizard: trigger %s needs exactly one of scene or handler", token)
		}
		if t.Scene != "" && !d.engine.Has(t.Scene) {
			return fmt.Errorf("trigger %s: %w: %s", token, ErrUnknownScene, t.Scene)
		}
		t.Token = token

		var table map[string]Trigger
		switch t.Kind {
		case TriggerCommand:
			table = d.commands
		case TriggerAction:
			table = d.actions
		default:
			return fmt.Errorf("wizard: trigger %s has no kind", token)
		}
		if _, exists := table[token]; exists {
			return fmt.Errorf("%w: %s %s", ErrDuplicateTrigger, t.Kind, token)
		}
		table[token] = t
	}
	return nil
}

// Use appends middlewares. They run inside the conversation lock, in order.
func (d *Dispatcher) Use(mws ...Middleware) {
	d.middlewares = append(d.middlewares, mws...)
}

// Triggers lists registered triggers, commands first, each group sorted by token.
func (d *Dispatcher) Triggers() []Trigger {
	out := make([]Trigger, 0, len(d.commands)+len(d.actions))
	for _, t := range d.commands {
		out = append(out, t)
	}
	for _, t := range d.actions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Token < out[j].Token
	})
	return out
}

// Action returns the action trigger registered for token.
func (d *Dispatcher) Action(token string) (Trigger, bool) {
	t, ok := d.actions[token]
	return t, ok
}

// Dispatch handles one inbound event. Errors are logged, counted and answered
// with a generic apology; the error is still returned for the caller's log line.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) error {
	if req.Event == nil {
		return errNilEvent
	}
	unlock := d.locks.lock(req.Conversation)
	defer unlock()

	start := time.Now()
	h := d.route
	for i := len(d.middlewares) - 1; i >= 0; i-- {
		h = d.middlewares[i](h)
	}
	err := h(ctx, req)

	kind := string(req.Event.Kind())
	if err == nil {
		d.opts.Metrics.RecordDispatch(kind, "ok", time.Since(start))
		return nil
	}

	d.opts.Metrics.RecordDispatch(kind, "fail", time.Since(start))
	logger.Error(ctx, "wizard.dispatch", "dispatch.failed",
		slog.String("status", "fail"),
		slog.String("event_kind", kind),
		logger.Err(err),
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
	)
	if req.Out != nil {
		if rerr := req.Out.Reply(ctx, d.opts.InternalError); rerr != nil {
			logger.Warn(ctx, "wizard.dispatch", "apology.failed", slog.String("err", rerr.Error()))
		}
	}
	return err
}

// Submit queues req behind the earlier events of its conversation and
// returns without waiting. Events of one conversation run one at a time in
// Submit order; done, if set, receives each Dispatch result.
func (d *Dispatcher) Submit(ctx context.Context, req Request, done func(error)) error {
	if req.Event == nil {
		return errNilEvent
	}
	ctx = context.WithoutCancel(ctx)
	return d.queues.push(req.Conversation, func() {
		err := d.dispatchSafely(ctx, req)
		if done != nil {
			done(err)
		}
	})
}

func (d *Dispatcher) dispatchSafely(ctx context.Context, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("wizard: panic in dispatch: %v", r)
			logger.Error(ctx, "wizard.dispatch", "dispatch.panic",
				slog.String("status", "fail"),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	return d.Dispatch(ctx, req)
}

// Close stops accepting submitted events and waits for the queued ones.
func (d *Dispatcher) Close() {
	d.queues.close()
}

func (d *Dispatcher) route(ctx context.Context, req Request) error {
	if req.Sender == nil {
		if err := d.engine.Abort(ctx, req.Conversation); err != nil {
			return err
		}
		if req.Out == nil {
			return nil
		}
		return req.Out.Reply(ctx, d.opts.MissingIdentity)
	}

	active, err := d.engine.Active(ctx, req.Conversation)
	if err != nil {
		return err
	}
	if active {
		return d.engine.Handle(ctx, req)
	}

	switch ev := req.Event.(type) {
	case Command:
		if t, ok := d.commands[ev.Name]; ok {
			return d.fire(ctx, req, t)
		}
	case Callback:
		token, _ := SplitCallback(ev.Data)
		if t, ok := d.actions[token]; ok {
			return d.fire(ctx, req, t)
		}
	}

	if d.opts.Fallback != nil {
		return d.opts.Fallback(ctx, req)
	}
	return nil
}

func (d *Dispatcher) fire(ctx context.Context, req Request, t Trigger) error {
	if t.AdminOnly && (d.opts.AdminID == 0 || req.Sender.ID != d.opts.AdminID) {
		logger.Warn(ctx, "wizard.dispatch", "trigger.forbidden",
			slog.String("status", "skip"),
			slog.String("op", t.Token),
		)
		if req.Out != nil && d.opts.Forbidden.Text != "" {
			return req.Out.Reply(ctx, d.opts.Forbidden)
		}
		return nil
	}
	ctx = logger.WithHandler(ctx, t.Kind.String()+"."+t.Token)
	if t.Scene != "" {
		return d.engine.Enter(ctx, req, t.Scene, nil)
	}
	return t.Handler(ctx, req)
}
