// Package shell provides the executor that runs a task's external command.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/creack/pty"
	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/stow/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Executor)(nil)

// killGrace bounds how long Wait blocks on output copying after the process
// group was killed.
const killGrace = time.Second

// Executor implements ports.Executor using os/exec, optionally inside a pty.
type Executor struct {
	usePTY bool
	sysEnv func() []string
}

// Option configures an Executor.
type Option func(*Executor)

// WithPTY runs commands inside a pseudo-terminal so they keep colored,
// interactive output. Stdout and stderr are merged in that mode.
func WithPTY(enabled bool) Option {
	return func(e *Executor) {
		e.usePTY = enabled
	}
}

// NewExecutor creates a new Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{sysEnv: os.Environ}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the task's command and waits for it to complete.
//
// A non-zero exit is domain.ErrExternalCommandFailed with the exit code in the
// domain.ExitCodeKey metadata. When ctx ends first the whole process group is
// killed and the context error is returned in the chain.
func (e *Executor) Execute(ctx context.Context, task *domain.Task, stdout, stderr io.Writer) error {
	if len(task.Command) == 0 {
		return zerr.With(zerr.Wrap(domain.ErrEmptyCommand, "nothing to execute"), "task", task.Name.String())
	}

	name := task.Command[0]
	args := task.Command[1:]

	cmdEnv := resolveEnvironment(e.sysEnv(), task.Environment)

	executable := name
	if !filepath.IsAbs(name) && !strings.ContainsRune(name, filepath.Separator) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, args...) //nolint:gosec // user provided command
	cmd.Args[0] = name
	cmd.Dir = task.Dir()
	cmd.Env = cmdEnv
	cmd.WaitDelay = killGrace

	var err error
	if e.usePTY {
		err = runPTY(cmd, stdout)
	} else {
		err = runPiped(cmd, stdout, stderr)
	}

	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return zerr.With(zerr.Wrap(ctxErr, "command interrupted"), "command", name)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return zerr.With(
			zerr.Wrap(domain.ErrExternalCommandFailed, fmt.Sprintf("%s exited with code %d", name, code)),
			domain.ExitCodeKey, code,
		)
	}

	return err
}

func runPiped(cmd *exec.Cmd, stdout, stderr io.Writer) error {
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCommandStartFailed, err.Error()), "command", cmd.Args[0])
	}
	return cmd.Wait()
}

func runPTY(cmd *exec.Cmd, stdout io.Writer) error {
	// pty.Start puts the child in a new session, which is also its process group.
	setGroupKill(cmd)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCommandStartFailed, err.Error()), "command", cmd.Args[0])
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		// Reading the master returns EIO once the child side is closed.
		_, _ = io.Copy(stdout, ptmx)
	}()

	waitErr := cmd.Wait()

	// A background process may still hold the terminal open.
	select {
	case <-ioDone:
	case <-time.After(killGrace):
	}
	_ = ptmx.Close()

	select {
	case <-ioDone:
	case <-time.After(killGrace):
	}

	return waitErr
}

// allowListedEnvVars are the system environment variables that are allowed to be
// inherited by the task. Everything else must be declared on the task.
var allowListedEnvVars = map[string]struct{}{
	"HOME": {},
	"TERM": {},
	"USER": {},
	"PATH": {},
}

// resolveEnvironment merges the allow-listed system variables with the task
// overrides. Task values win. The result is sorted.
func resolveEnvironment(sysEnv []string, taskEnv map[string]string) []string {
	envMap := filterSystemEnv(sysEnv)

	for k, v := range taskEnv {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

func filterSystemEnv(sysEnv []string) map[string]string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			if _, allowed := allowListedEnvVars[k]; allowed {
				envMap[k] = v
			}
		}
	}
	return envMap
}

// lookPath searches for an executable in the directories named by the PATH
// entry of env rather than the PATH of the current process.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
