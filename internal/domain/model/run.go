// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusInit       RunStatus = "init"
	StatusInProgress RunStatus = "in_progress"
	StatusFinished   RunStatus = "finished"
)

// ParseRunStatus validates a status coming from a filter or a store row.
func ParseRunStatus(s string) (RunStatus, error) {
	switch st := RunStatus(strings.TrimSpace(s)); st {
	case StatusInit, StatusInProgress, StatusFinished:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown run status %q", ErrValidation, s)
	}
}

// Action is a lifecycle command applied to a run.
type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

// ParseAction validates an action taken from a request path.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionStart, ActionStop:
		return a, nil
	default:
		return "", fmt.Errorf("%w: unknown run action %q", ErrValidation, s)
	}
}

// Run is a tracked athletic session.
type Run struct {
	ID        string
	AthleteID string
	Status    RunStatus
	Distance  float64 // kilometers, written once when the run finishes
	Comment   string
	CreatedAt time.Time
}

// RunFilter narrows run listings.
type RunFilter struct {
	AthleteID string
	Status    RunStatus
	// Descending orders by created_at newest first.
	Descending bool
	Page       Page
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	if p.Number < 1 || p.Size < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}
