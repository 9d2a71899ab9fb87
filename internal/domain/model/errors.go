package model

import "errors"

// Sentinel error kinds shared by the engine, the stores and the HTTP layer.
// Wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidRunState   = errors.New("invalid run state")
	ErrNotFound          = errors.New("not found")
	// ErrDuplicate is returned by stores on a uniqueness conflict. The engine
	// never surfaces it for challenges.
	ErrDuplicate = errors.New("duplicate")
)
