package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/m3rciful/woofinder/core/state"
)

// SceneID names a registered scene.
type SceneID string

// Step is one stage of a scene operating on the form accumulator F.
type Step[F any] struct {
	// Name tags the step in logs and metrics.
	Name string
	Run  func(ctx context.Context, t *Turn[F]) (Transition, error)
}

// Turn is what a step sees while handling one event.
type Turn[F any] struct {
	Event        Event
	Form         *F
	Index        int
	Sender       *Sender
	Conversation state.Key

	out     Responder
	files   FileResolver
	carried map[string]string
	carry   map[string]string
}

// Reply sends msg to the current conversation.
func (t *Turn[F]) Reply(ctx context.Context, msg Message) error {
	if t.out == nil {
		return nil
	}
	return t.out.Reply(ctx, msg)
}

// Notify sends msg to another user.
func (t *Turn[F]) Notify(ctx context.Context, userID int64, msg Message) error {
	if t.out == nil {
		return nil
	}
	return t.out.Notify(ctx, userID, msg)
}

// Files returns the platform file resolver.
func (t *Turn[F]) Files() FileResolver {
	return t.files
}

// Carry stores a value for the next turn only.
func (t *Turn[F]) Carry(key, value string) {
	if t.carry == nil {
		t.carry = make(map[string]string)
	}
	t.carry[key] = value
}

// Carried returns a value stored with Carry during the previous turn.
func (t *Turn[F]) Carried(key string) (string, bool) {
	v, ok := t.carried[key]
	return v, ok
}

// Text returns the trimmed content of a Text event.
func (t *Turn[F]) Text() (string, bool) {
	ev, ok := t.Event.(Text)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(ev.Content), true
}

// CallbackData returns the data of a Callback event.
func (t *Turn[F]) CallbackData() (string, bool) {
	ev, ok := t.Event.(Callback)
	if !ok {
		return "", false
	}
	return ev.Data, true
}

// Stay re-arms the current step.
func (t *Turn[F]) Stay() Transition {
	return SelectStep(t.Index)
}

// Scene is an immutable, ordered list of steps. Build one with NewScene.
type Scene interface {
	ID() SceneID
	Len() int
	StepName(i int) string
	run(ctx context.Context, in stepInput) (stepOutput, error)
}

type stepInput struct {
	req     Request
	index   int
	event   Event
	form    json.RawMessage
	carried map[string]string
}

type stepOutput struct {
	transition Transition
	form       json.RawMessage
	carry      map[string]string
}

type scene[F any] struct {
	id    SceneID
	steps []Step[F]
}

// NewScene builds a scene whose form accumulator is F. Step 0 is the entry
// step. It panics on an empty id, no steps, or a step without Run, since
// scenes are declared once at startup.
func NewScene[F any](id SceneID, steps ...Step[F]) Scene {
	if id == "" {
		panic("wizard: scene id is empty")
	}
	if len(steps) == 0 {
		panic(fmt.Sprintf("wizard: scene %s has no steps", id))
	}
	for i, s := range steps {
		if s.Run == nil {
			panic(fmt.Sprintf("wizard: scene %s step %d has no handler", id, i))
		}
		if s.Name == "" {
			steps[i].Name = fmt.Sprintf("step_%d", i)
		}
	}
	return &scene[F]{id: id, steps: append([]Step[F](nil), steps...)}
}

func (s *scene[F]) ID() SceneID { return s.id }

func (s *scene[F]) Len() int { return len(s.steps) }

func (s *scene[F]) StepName(i int) string {
	if i < 0 || i >= len(s.steps) {
		return ""
	}
	return s.steps[i].Name
}

var errNoTransition = errors.New("step returned no transition")

func (s *scene[F]) run(ctx context.Context, in stepInput) (stepOutput, error) {
	form := new(F)
	if len(in.form) > 0 {
		if err := json.Unmarshal(in.form, form); err != nil {
			return stepOutput{}, fmt.Errorf("decode form: %w", err)
		}
	}
	turn := &Turn[F]{
		Event:        in.event,
		Form:         form,
		Index:        in.index,
		Sender:       in.req.Sender,
		Conversation: in.req.Conversation,
		out:          in.req.Out,
		files:        in.req.Files,
		carried:      in.carried,
	}
	tr, err := s.steps[in.index].Run(ctx, turn)
	if err != nil {
		return stepOutput{}, err
	}
	if tr.kind == 0 {
		return stepOutput{}, errNoTransition
	}
	encoded, err := json.Marshal(form)
	if err != nil {
		return stepOutput{}, fmt.Errorf("encode form: %w", err)
	}
	return stepOutput{transition: tr, form: encoded, carry: turn.carry}, nil
}

func encodeSeed(seed any) (json.RawMessage, error) {
	if seed == nil {
		return nil, nil
	}
	if raw, ok := seed.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(seed)
	if err != nil {
		return nil, fmt.Errorf("encode seed: %w", err)
	}
	return b, nil
}
