package dispatch

import "errors"

var (
	ErrStorageNil   = errors.New("dispatch: storage cannot be nil")
	ErrInvokerNil   = errors.New("dispatch: invoker registry cannot be nil")
	ErrResolverNil  = errors.New("dispatch: subject resolver cannot be nil")
	ErrNoTask       = errors.New("dispatch: no task to claim")
	ErrUnknownTask  = errors.New("dispatch: unknown task name")
	ErrAlreadyRun   = errors.New("dispatch: worker already started")
	ErrNotStarted   = errors.New("dispatch: worker not started")
	ErrTaskNotFound = errors.New("dispatch: task not found")
)
