package cli

import (
	"errors"

	"canopy/internal/core"
)

// Exit codes returned by the canopy command.
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitPanic        = 3
	ExitInputError   = 10
)

// ErrUsage marks command line usage errors.
var ErrUsage = errors.New("usage error")

// ErrInvalidFormat is returned for an unknown --format value.
var ErrInvalidFormat = errors.New("invalid output format")

// ExitCodeForError returns the appropriate exit code for an error.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var verr *core.ValidationError
	switch {
	case errors.Is(err, ErrUsage), errors.Is(err, ErrInvalidFormat):
		return ExitUsageError
	case errors.As(err, &verr):
		return ExitInputError
	}
	return ExitGeneralError
}
