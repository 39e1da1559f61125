package scenes

import (
	"context"

	"github.com/m3rciful/woofinder/core/wizard"
)

// input is a step that reads one value. Exit cancels and back re-sends the
// previous prompt before any validation runs.
type input[F any] struct {
	name string
	// previous is re-sent on back; nil means back is not offered here.
	previous func(ctx context.Context, t *wizard.Turn[F]) (wizard.Message, error)
	// read validates the event into the form. A non-empty problem re-prompts.
	read func(ctx context.Context, t *wizard.Turn[F]) (problem string, err error)
	// then is sent after a successful read and moves to the next step.
	then func(ctx context.Context, t *wizard.Turn[F]) (wizard.Message, error)
}

func (in input[F]) step() wizard.Step[F] {
	return wizard.Step[F]{Name: in.name, Run: func(ctx context.Context, t *wizard.Turn[F]) (wizard.Transition, error) {
		if wizard.IsExit(t.Event) {
			return cancel(ctx, t)
		}
		if in.previous != nil && wizard.IsBack(t.Event) {
			msg, err := in.previous(ctx, t)
			if err != nil {
				return wizard.Transition{}, err
			}
			return back(ctx, t, msg)
		}
		problem, err := in.read(ctx, t)
		if err != nil {
			return wizard.Transition{}, err
		}
		if problem != "" {
			return stay(ctx, t, warn(problem))
		}
		msg, err := in.then(ctx, t)
		if err != nil {
			return wizard.Transition{}, err
		}
		return next(ctx, t, msg)
	}}
}
