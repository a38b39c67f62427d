package problem

import "errors"

var (
	ErrAlreadyAttached = errors.New("problem: operation already has a parent")
	ErrCycle           = errors.New("problem: operation cannot be attached below itself")
	ErrDetached        = errors.New("problem: operation is not attached to a data set")
	ErrNoEngine        = errors.New("problem: data set is not part of a problem")
	ErrUnknownPrompt   = errors.New("problem: operation has no such prompt")
	ErrDuplicateName   = errors.New("problem: data set name already in use")
)
