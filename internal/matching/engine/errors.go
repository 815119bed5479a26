package engine

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidRequest is returned before any filtering when the receiver
	// record is missing or malformed.
	ErrInvalidRequest = errors.New("invalid match request")

	// ErrOracleContract is returned when the oracle answers with the wrong
	// number of rows or a probability outside [0, 1].
	ErrOracleContract = errors.New("oracle violated scoring contract")
)

// ValidationError lists every problem found in a receiver record.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidRequest.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}
