package opscript

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownOperation = errors.New("opscript: unknown operation")
	ErrInvalidAnswer    = errors.New("opscript: invalid answer")
)

// MissingParametersError is returned before any engine call when a
// script's prompts have not all been answered.
type MissingParametersError struct {
	Operation string
	Missing   []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("operation %q needs answers for: %s", e.Operation, strings.Join(e.Missing, ", "))
}

// ScriptError reports a malformed script, an error raised by the script
// itself, or a failed engine call made on the script's behalf.
type ScriptError struct {
	Operation string
	Msg       string
	Err       error
}

func (e *ScriptError) Error() string {
	var b strings.Builder
	if e.Operation != "" {
		fmt.Fprintf(&b, "operation %q: ", e.Operation)
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ScriptError) Unwrap() error { return e.Err }

// IsScriptError reports whether err is, or wraps, a *ScriptError.
func IsScriptError(err error) bool {
	var e *ScriptError
	return errors.As(err, &e)
}

func scriptErrorf(err error, format string, args ...interface{}) *ScriptError {
	return &ScriptError{Msg: fmt.Sprintf(format, args...), Err: err}
}
