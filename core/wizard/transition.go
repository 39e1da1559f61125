package wizard

import "strconv"

type transitionKind uint8

const (
	transNext transitionKind = iota + 1
	transBack
	transSelect
	transReenter
	transLeave
)

// Transition tells the engine where the conversation goes after a step.
type Transition struct {
	kind   transitionKind
	target int
}

// Next advances to the following step. Advancing past the last step finishes the scene.
func Next() Transition { return Transition{kind: transNext} }

// Back moves to the previous step without running it. The floor is step 0.
func Back() Transition { return Transition{kind: transBack} }

// SelectStep jumps to step n. Passing the current index re-arms the step.
func SelectStep(n int) Transition { return Transition{kind: transSelect, target: n} }

// Reenter restarts the scene at step 0 and runs it immediately, keeping the form.
func Reenter() Transition { return Transition{kind: transReenter} }

// Leave ends the scene and discards the session.
func Leave() Transition { return Transition{kind: transLeave} }

// Name is the label used in logs and metrics.
func (t Transition) Name() string {
	switch t.kind {
	case transNext:
		return "next"
	case transBack:
		return "back"
	case transSelect:
		return "select"
	case transReenter:
		return "reenter"
	case transLeave:
		return "leave"
	}
	return "none"
}

func (t Transition) String() string {
	if t.kind == transSelect {
		return "select(" + strconv.Itoa(t.target) + ")"
	}
	return t.Name()
}
