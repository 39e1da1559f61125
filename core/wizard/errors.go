package wizard

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveScene is returned by Handle when the conversation has no session.
	ErrNoActiveScene = errors.New("wizard: no active scene")
	// ErrUnknownScene is returned when a scene id is not registered.
	ErrUnknownScene = errors.New("wizard: unknown scene")
	// ErrInvalidStep is returned when a transition targets a step outside the scene.
	ErrInvalidStep = errors.New("wizard: invalid step")
	// ErrReentryLimit is returned when a scene keeps re-entering itself.
	ErrReentryLimit = errors.New("wizard: re-entry limit reached")
	// ErrDuplicateScene is returned by Register for an id already in use.
	ErrDuplicateScene = errors.New("wizard: duplicate scene")
	// ErrDuplicateTrigger is returned when a trigger token is registered twice.
	ErrDuplicateTrigger = errors.New("wizard: duplicate trigger")
	// ErrBacklogFull is returned by Submit when a conversation has too many
	// events waiting.
	ErrBacklogFull = errors.New("wizard: conversation backlog is full")
	// ErrDispatcherClosed is returned by Submit after Close.
	ErrDispatcherClosed = errors.New("wizard: dispatcher is closed")
)

// StepError wraps a failure raised by a step handler.
type StepError struct {
	Scene SceneID
	Step  string
	Index int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("wizard: scene %s step %d (%s): %v", e.Scene, e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Code is picked up by the router's error summary.
func (e *StepError) Code() string { return "STEP_FAILED" }
