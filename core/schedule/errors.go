package schedule

import "errors"

var (
	ErrNilAdmitter         = errors.New("schedule admitter cannot be nil")
	ErrNilFactory          = errors.New("schedule command factory cannot be nil")
	ErrInvalidSpec         = errors.New("invalid schedule spec")
	ErrAlreadyRegistered   = errors.New("schedule entry already registered")
	ErrEntryNotFound       = errors.New("schedule entry not found")
	ErrStillRunning        = errors.New("previous command of schedule entry still running")
	ErrSchedulerStarted    = errors.New("scheduler already started")
	ErrSchedulerNotStarted = errors.New("scheduler not started")
)
