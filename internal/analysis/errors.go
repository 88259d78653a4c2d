package analysis

import "errors"

var (
	// ErrValidation is returned when a submitted brief is empty or whitespace.
	ErrValidation = errors.New("brief text is empty")
	// ErrDeepDiveActive is returned when a deep dive is triggered while one
	// is already live for the session. Callers must wait for a terminal
	// state or cancel first.
	ErrDeepDiveActive = errors.New("deep dive already running")
)
