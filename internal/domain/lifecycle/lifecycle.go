// Package lifecycle defines the run state machine.
//
// A run moves init -> in_progress -> finished and never back.
package lifecycle

import (
	"fmt"

	"github.com/okian/stride/internal/domain/model"
)

// transitions maps an action to its single legal source and target state.
var transitions = map[model.Action]struct {
	from model.RunStatus
	to   model.RunStatus
}{
	model.ActionStart: {from: model.StatusInit, to: model.StatusInProgress},
	model.ActionStop:  {from: model.StatusInProgress, to: model.StatusFinished},
}

// Next returns the state reached by applying action to current. Illegal
// combinations return an error wrapping model.ErrInvalidTransition and the
// current state unchanged.
func Next(current model.RunStatus, action model.Action) (model.RunStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return current, fmt.Errorf("%w: unknown action %q", model.ErrValidation, action)
	}
	if current != t.from {
		return current, fmt.Errorf("%w: cannot %s a run in status %q", model.ErrInvalidTransition, action, current)
	}
	return t.to, nil
}
