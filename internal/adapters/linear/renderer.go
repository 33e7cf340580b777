// Package linear provides a line-oriented renderer: task output is prefixed
// with the task name and status lines are printed as tasks start and finish.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/stow/internal/core/ports"
	"go.trai.ch/stow/internal/ui/output"
	"go.trai.ch/stow/internal/ui/style"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer implements ports.Renderer. Task output goes to stdout, status
// lines go to stderr.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output

	mu    sync.Mutex
	tasks map[string]*taskState // spanID -> task state
}

type taskState struct {
	name      string
	startTime time.Time
	partial   bytes.Buffer
}

// NewRenderer creates a new Renderer. Status lines are styled when color is true.
func NewRenderer(stdout, stderr io.Writer, color bool) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	return &Renderer{
		stdout: stdout,
		stderr: stderr,
		output: output.New(stderr, color),
		tasks:  make(map[string]*taskState),
	}
}

// Start is a no-op; the renderer writes synchronously.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop flushes partial lines of tasks that never completed.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, task := range r.tasks {
		r.flushPartialLocked(task)
	}

	return nil
}

// Wait is a no-op; the renderer writes synchronously.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit prints the requested tasks.
func (r *Renderer) OnPlanEmit(tasks []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.stderr, "Planning to run %d task(s): %s\n", len(tasks), strings.Join(tasks, ", "))
}

// OnTaskStart prints a task start message.
func (r *Renderer) OnTaskStart(spanID, _ string, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[spanID] = &taskState{
		name:      name,
		startTime: startTime,
	}

	_, _ = fmt.Fprintf(r.stderr, "%s Starting...\n", r.prefix(name))
}

// OnTaskLog prints complete lines with the task prefix and holds back a
// trailing partial line until more data or completion arrives.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}

	task.partial.Write(data)
	for {
		buffered := task.partial.Bytes()
		i := bytes.IndexByte(buffered, '\n')
		if i < 0 {
			return
		}
		r.printLineLocked(task.name, buffered[:i])
		task.partial.Next(i + 1)
	}
}

// OnTaskComplete flushes remaining output and prints the task's outcome.
func (r *Renderer) OnTaskComplete(
	spanID string,
	endTime time.Time,
	err error,
	outcome domain.Outcome,
	source domain.CacheSource,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}
	delete(r.tasks, spanID)

	r.flushPartialLocked(task)

	duration := endTime.Sub(task.startTime).Round(time.Millisecond)
	prefix := r.prefix(task.name)

	switch {
	case err != nil || outcome == domain.OutcomeFailed:
		if err == nil {
			err = domain.ErrTaskExecutionFailed
		}
		_, _ = fmt.Fprintf(r.stderr, "%s %s Failed after %v: %v\n",
			prefix, r.icon(style.Cross, style.Red), duration, err)
	case outcome == domain.OutcomeRestored && source == domain.SourceLocal:
		_, _ = fmt.Fprintf(r.stderr, "%s %s Up to date\n",
			prefix, r.icon(style.Check, style.Teal))
	case outcome == domain.OutcomeRestored:
		_, _ = fmt.Fprintf(r.stderr, "%s %s Restored from cache in %v\n",
			prefix, r.icon(style.Arrow, style.Iris), duration)
	default:
		_, _ = fmt.Fprintf(r.stderr, "%s %s Completed in %v\n",
			prefix, r.icon(style.Check, style.Green), duration)
	}
}

func (r *Renderer) prefix(name string) string {
	return r.output.String("[" + name + "]").Faint().String()
}

func (r *Renderer) icon(symbol string, color lipgloss.Color) string {
	return r.output.String(symbol).Foreground(r.output.Color(string(color))).String()
}

// flushPartialLocked must be called with r.mu held.
func (r *Renderer) flushPartialLocked(task *taskState) {
	if task.partial.Len() > 0 {
		r.printLineLocked(task.name, task.partial.Bytes())
		task.partial.Reset()
	}
}

// printLineLocked must be called with r.mu held.
func (r *Renderer) printLineLocked(taskName string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		_, _ = fmt.Fprintf(r.stdout, "[%s]\n", taskName)
		return
	}

	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", taskName, line)
}
