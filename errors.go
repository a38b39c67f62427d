package marla

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the R executable cannot be
	// started.
	ErrUnavailable = errors.New("marla: R could not be started")

	// ErrDead is returned when the R process died or was closed. The
	// Conn must be restarted.
	ErrDead = errors.New("marla: R process is not running")

	// ErrMultipleStatements is returned when Execute is given more
	// than one statement.
	ErrMultipleStatements = errors.New("marla: execute may only be given one command at a time")
)

// EngineError is returned when R rejects a statement.
type EngineError struct {
	Command string
	Output  string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("R: %s", e.Output)
}

// ParseError is returned when R's output does not have the shape the
// caller asked for.
type ParseError struct {
	Want   string
	Output string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("the R result was not %s: %q", e.Want, e.Output)
}

// IsEngineError reports whether err is, or wraps, an *EngineError.
func IsEngineError(err error) bool {
	var e *EngineError
	return errors.As(err, &e)
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}
