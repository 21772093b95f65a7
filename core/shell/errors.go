package shell

import "errors"

var (
	// ErrInputTooLarge is returned when a line or stage exceeds its Limits.
	ErrInputTooLarge = errors.New("input too large")
	// ErrEmptyStage is returned for a pipeline stage with no program.
	ErrEmptyStage = errors.New("syntax error: empty command")
	// ErrMissingRedirectTarget is returned when a redirect has no file name.
	ErrMissingRedirectTarget = errors.New("syntax error: missing file name after redirect")

	// ErrLaunch is returned when a process or pipe could not be created.
	ErrLaunch = errors.New("launch failed")
	// ErrExec is returned when a program can't be found or run.
	ErrExec = errors.New("exec failed")
	// ErrRedirection is returned when a redirect target can't be opened.
	ErrRedirection = errors.New("redirection failed")
)

// Exit statuses synthesized for stages that never ran.
const (
	StatusFailure     = 1
	StatusUsage       = 2
	StatusNotRunnable = 126
	StatusNotFound    = 127
	statusSignalBase  = 128
)
