package domain

import (
	"errors"
	"time"

	"go.trai.ch/zerr"
)

// ExitCodeKey is the zerr metadata key carrying an external command's exit status.
const ExitCodeKey = "exit_code"

// Outcome is the terminal state of a task invocation.
type Outcome string

const (
	// OutcomeExecuted means the command ran and succeeded.
	OutcomeExecuted Outcome = "executed"
	// OutcomeRestored means the outputs were restored and the command did not run.
	OutcomeRestored Outcome = "restored-from-cache"
	// OutcomeFailed means the task failed; see the FailureReason.
	OutcomeFailed Outcome = "failed"
)

// FailureReason classifies a failed task.
type FailureReason string

const (
	// ReasonNone is the reason of a task that did not fail.
	ReasonNone FailureReason = ""
	// ReasonInputMissing means a declared input did not exist.
	ReasonInputMissing FailureReason = "input-missing"
	// ReasonOutputMissing means the command did not produce a declared output.
	ReasonOutputMissing FailureReason = "output-missing"
	// ReasonCommandFailed means the command could not start or exited non-zero.
	ReasonCommandFailed FailureReason = "command-failed"
	// ReasonTimeout means the command exceeded the task timeout.
	ReasonTimeout FailureReason = "timeout"
	// ReasonCanceled means the invocation was canceled.
	ReasonCanceled FailureReason = "canceled"
	// ReasonInternal covers every other failure.
	ReasonInternal FailureReason = "internal"
)

// TaskResult is the outcome of running one task.
type TaskResult struct {
	Task        string
	Outcome     Outcome
	Source      CacheSource
	Fingerprint Fingerprint
	Reason      FailureReason
	ExitCode    int
	Duration    time.Duration
	Err         error
}

// Failed reports whether the task failed.
func (r *TaskResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// Label returns a short human-readable outcome.
func (r *TaskResult) Label() string {
	switch r.Outcome {
	case OutcomeRestored:
		if r.Source == SourceLocal {
			return "up-to-date"
		}
		return "restored from cache"
	case OutcomeExecuted:
		return "executed"
	default:
		return "failed"
	}
}

// ReasonOf classifies err into a FailureReason.
func ReasonOf(err error) FailureReason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrInputMissing):
		return ReasonInputMissing
	case errors.Is(err, ErrOutputMissing):
		return ReasonOutputMissing
	case errors.Is(err, ErrExternalCommandFailed), errors.Is(err, ErrCommandStartFailed):
		return ReasonCommandFailed
	case errors.Is(err, ErrTaskTimeout):
		return ReasonTimeout
	case errors.Is(err, ErrTaskCanceled):
		return ReasonCanceled
	default:
		return ReasonInternal
	}
}

// ExitCode returns the exit status attached to err by the executor, if any.
// It searches wrapped and joined errors.
func ExitCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}

	if z, ok := err.(*zerr.Error); ok { //nolint:errorlint // metadata lives on each chain link
		if code, ok := z.Metadata()[ExitCodeKey].(int); ok {
			return code, true
		}
	}

	switch u := err.(type) { //nolint:errorlint // manual traversal of both unwrap forms
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if code, ok := ExitCode(e); ok {
				return code, true
			}
		}
	case interface{ Unwrap() error }:
		return ExitCode(u.Unwrap())
	}

	return 0, false
}
