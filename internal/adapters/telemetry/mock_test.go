package telemetry_test

import (
	"context"
	"sync"
	"time"

	"go.trai.ch/stow/internal/core/domain"
)

// recordingRenderer is a simple test double for ports.Renderer that records
// the order of events.
type recordingRenderer struct {
	mu     sync.Mutex
	events []string
	logs   []byte
	plan   []string
	last   completion
}

type completion struct {
	err     error
	outcome domain.Outcome
	source  domain.CacheSource
}

func (r *recordingRenderer) Start(_ context.Context) error { return nil }
func (r *recordingRenderer) Stop() error                   { return nil }
func (r *recordingRenderer) Wait() error                   { return nil }

func (r *recordingRenderer) OnPlanEmit(tasks []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "plan")
	r.plan = tasks
}

func (r *recordingRenderer) OnTaskStart(_, _, name string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "start:"+name)
}

func (r *recordingRenderer) OnTaskLog(_ string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "log")
	r.logs = append(r.logs, data...)
}

func (r *recordingRenderer) OnTaskComplete(_ string, _ time.Time, err error, outcome domain.Outcome, source domain.CacheSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "complete")
	r.last = completion{err: err, outcome: outcome, source: source}
}

func (r *recordingRenderer) snapshot() ([]string, string, completion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...), string(r.logs), r.last
}
