package ports

import (
	"context"
	"time"

	"go.trai.ch/stow/internal/core/domain"
)

// Renderer is the abstraction for output rendering.
// It decouples telemetry collection from presentation.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Stop signals the renderer to stop accepting events and flush buffered output.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnPlanEmit is called with the requested task names before any task starts.
	OnPlanEmit(tasks []string)

	// OnTaskStart is called when a task begins.
	// parentID is empty for root spans.
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog is called when a task emits output.
	// data may contain partial lines or ANSI sequences.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a task finishes. err is nil on success;
	// outcome and source describe how the task terminated.
	OnTaskComplete(spanID string, endTime time.Time, err error, outcome domain.Outcome, source domain.CacheSource)
}
