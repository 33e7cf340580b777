// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/stow/internal/core/domain"
)

// Executor runs a task's external command.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the task's argv in its working directory and streams the
	// child's output to stdout and stderr. It blocks until the child exits or
	// ctx is done.
	//
	// A non-zero exit is reported as domain.ErrExternalCommandFailed carrying
	// the exit code under domain.ExitCodeKey.
	Execute(ctx context.Context, task *domain.Task, stdout, stderr io.Writer) error
}
