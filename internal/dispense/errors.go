package dispense

import "errors"

var (
	// ErrHardware wraps any capability failure that stopped a run.
	ErrHardware = errors.New("hardware failure")
	// ErrAlreadyRun is returned when Run is called more than once on a Controller.
	ErrAlreadyRun = errors.New("controller has already run")
)
