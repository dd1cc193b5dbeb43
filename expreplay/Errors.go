package expreplay

import "errors"

// ExpReplayError implements errors unique to a replay memory.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

// ErrEmptyMemory is reported when an operation requires at least one
// transition in memory.
var ErrEmptyMemory = errors.New("memory empty")

// ErrInsufficientData is reported when more transitions are requested
// than the memory holds.
var ErrInsufficientData = errors.New("insufficient data in memory")

// IsInsufficientData returns whether or not an error reports that
// there are too few transitions in memory to satisfy a request.
func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

// IsEmptyMemory returns whether or not an error reports that a replay
// memory is empty.
func IsEmptyMemory(err error) bool {
	return errors.Is(err, ErrEmptyMemory)
}
