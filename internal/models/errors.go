package models

// ErrorType identifies the category of a trial-level fault.
type ErrorType string

const (
	// Actor invocation phase
	ErrActorFailed  ErrorType = "actor_failed"
	ErrActorTimeout ErrorType = "actor_timeout"

	// Trial infrastructure
	ErrTrialTimeout ErrorType = "trial_timeout"
	ErrTrialPanic   ErrorType = "trial_panic"

	// Pre-execution
	ErrTaskNotFound ErrorType = "task_not_found"
	ErrStateInit    ErrorType = "state_init_failed"

	// Catch-all
	ErrInternalError ErrorType = "internal_error"
)
