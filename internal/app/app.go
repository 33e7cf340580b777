// Package app implements the application layer for stow.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/stow/internal/adapters/detector"
	"go.trai.ch/stow/internal/adapters/linear"
	"go.trai.ch/stow/internal/adapters/telemetry"
	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/stow/internal/core/ports"
	"go.trai.ch/stow/internal/engine/runner"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	runner       *runner.Runner
	logger       ports.Logger
	providers    []ports.CacheProvider

	stdout  io.Writer
	stderr  io.Writer
	workDir string
}

// New creates a new App instance. Cache tiers are opened from providers in
// lookup order.
func New(
	loader ports.ConfigLoader,
	run *runner.Runner,
	log ports.Logger,
	providers ...ports.CacheProvider,
) *App {
	return &App{
		configLoader: loader,
		runner:       run,
		logger:       log,
		providers:    providers,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// WithOutput redirects task output and progress lines.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithWorkDir sets the directory the project file is searched from.
// It defaults to the process working directory.
func (a *App) WithWorkDir(dir string) *App {
	a.workDir = dir
	return a
}

// RunOptions configuration for the Run and Exec methods.
type RunOptions struct {
	NoCache    bool
	CacheDir   string
	Jobs       int
	OutputMode string
}

// ExecOptions describes an ad-hoc task run without a project file.
type ExecOptions struct {
	RunOptions

	Name    string
	Command []string
	// Inputs are paths, each optionally suffixed with ":relative" or ":absolute".
	Inputs  []string
	Outputs []string
	Timeout time.Duration
}

// Run executes the tasks declared in the project file under the given names.
func (a *App) Run(ctx context.Context, targetNames []string, opts RunOptions) error {
	// 1. Load the project
	project, err := a.configLoader.Load(a.cwd())
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	// 2. Validate targets
	if len(targetNames) == 0 {
		return domain.ErrNoTargetsSpecified
	}

	tasks := make([]*domain.Task, 0, len(targetNames))
	seen := make(map[string]bool, len(targetNames))
	for _, name := range targetNames {
		if seen[name] {
			continue
		}
		seen[name] = true

		task, ok := project.Task(name)
		if !ok {
			return zerr.With(zerr.Wrap(domain.ErrTaskNotFound, "not declared in "+project.ConfigPath), "task", name)
		}
		tasks = append(tasks, task)
	}

	// 3. Run
	return a.execute(ctx, project, tasks, opts)
}

// Exec runs a single task described on the command line.
func (a *App) Exec(ctx context.Context, opts ExecOptions) error {
	project, err := a.configLoader.Defaults(a.cwd())
	if err != nil {
		return zerr.Wrap(err, "failed to load settings")
	}

	task, err := adHocTask(project.Root, opts)
	if err != nil {
		return err
	}

	return a.execute(ctx, project, []*domain.Task{task}, opts.RunOptions)
}

// execute runs tasks with the renderer and the runner side by side.
func (a *App) execute(ctx context.Context, project *domain.Project, tasks []*domain.Task, opts RunOptions) error {
	a.applySettings(project, opts)

	runID := uuid.NewString()
	tiers := a.openTiers(project, runID)
	defer func() {
		for _, tier := range tiers {
			if err := tier.Close(); err != nil {
				a.logger.Warn(fmt.Sprintf("failed to close %s cache: %v", tier.Source(), err))
			}
		}
	}()

	// Renderer
	mode := detector.ResolveMode(detector.DetectEnvironment(), opts.OutputMode)
	renderer := linear.NewRenderer(a.stdout, a.stderr, mode == detector.ModeColor)

	// Telemetry: spans are forwarded to the renderer through the bridge.
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(renderer)))
	defer func() {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
	}()
	tracer := telemetry.NewOTelTracer("stow", telemetry.WithTracerProvider(tp)).WithRenderer(renderer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := renderer.Start(gctx); err != nil {
			return err
		}
		return renderer.Wait()
	})

	g.Go(func() error {
		defer func() {
			_ = tracer.Shutdown(context.WithoutCancel(gctx))
			_ = renderer.Stop()
		}()

		_, err := a.runner.Run(gctx, tasks, runner.Options{
			Tracer:  tracer,
			Tiers:   tiers,
			Jobs:    opts.Jobs,
			NoCache: opts.NoCache || !project.Settings.CacheEnabled,
			RunID:   runID,
		})
		if err != nil {
			return errors.Join(domain.ErrBuildExecutionFailed, err)
		}
		return nil
	})

	return g.Wait()
}

// applySettings folds the command line overrides into the project settings.
func (a *App) applySettings(project *domain.Project, opts RunOptions) {
	if opts.NoCache {
		project.Settings.CacheEnabled = false
	}
	if opts.CacheDir != "" {
		dir := opts.CacheDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(a.cwd(), dir)
		}
		project.Settings.CacheDir = filepath.Clean(dir)
	}

	if j, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		j.SetJSON(project.Settings.LogFormat == "json")
	}
}

// openTiers opens every enabled cache tier. A tier that cannot be opened is
// skipped with a warning.
func (a *App) openTiers(project *domain.Project, runID string) []ports.CacheStore {
	var tiers []ports.CacheStore
	for _, p := range a.providers {
		store, err := p.Open(project, runID)
		if err != nil {
			a.logger.Warn(fmt.Sprintf("cache disabled: %v", err))
			continue
		}
		if store != nil {
			tiers = append(tiers, store)
		}
	}
	return tiers
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	State bool
	Cache bool
}

// Clean removes the local state database and the shared cache directory.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	project, err := a.configLoader.Load(a.cwd())
	if errors.Is(err, domain.ErrConfigNotFound) {
		project, err = a.configLoader.Defaults(a.cwd())
	}
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	var errs error

	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)), "path", path))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.State {
		remove(domain.DefaultStatePath(project.Root), "local state")
	}

	if options.Cache {
		dir := project.Settings.CacheDir
		if dir == "" {
			dir = domain.DefaultCachePath(project.Root)
		}
		remove(dir, "shared cache")
	}

	return errs
}

func (a *App) cwd() string {
	if a.workDir != "" {
		return a.workDir
	}
	return "."
}

// adHocTask builds the task for Exec rooted at root.
func adHocTask(root string, opts ExecOptions) (*domain.Task, error) {
	if len(opts.Command) == 0 {
		return nil, zerr.Wrap(domain.ErrEmptyCommand, "pass the command after --")
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(opts.Command[0])
	}
	if err := domain.ValidateTaskName(name); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "use --name to pick a name without whitespace or slashes"), "task", name)
	}

	inputs := make([]domain.InputPath, 0, len(opts.Inputs))
	for _, raw := range opts.Inputs {
		in, err := parseInput(raw)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}

	outputs := make([]string, 0, len(opts.Outputs))
	for _, out := range opts.Outputs {
		if !filepath.IsLocal(filepath.FromSlash(out)) {
			return nil, zerr.With(zerr.Wrap(domain.ErrOutputPathOutsideRoot, "outputs must be relative paths inside the working directory"), "path", out)
		}
		outputs = append(outputs, filepath.ToSlash(filepath.Clean(filepath.FromSlash(out))))
	}
	slices.Sort(outputs)

	return &domain.Task{
		Name:    domain.NewInternedString(name),
		Command: opts.Command,
		Inputs:  inputs,
		Outputs: domain.NewInternedStrings(slices.Compact(outputs)),
		Root:    domain.NewInternedString(root),
		Cache:   true,
		Timeout: opts.Timeout,
	}, nil
}

// parseInput splits "path[:relative|:absolute]".
func parseInput(raw string) (domain.InputPath, error) {
	path := raw
	var mode string
	if i := strings.LastIndexByte(raw, ':'); i >= 0 {
		switch suffix := raw[i+1:]; suffix {
		case string(domain.SensitivityRelative), string(domain.SensitivityAbsolute):
			path, mode = raw[:i], suffix
		}
	}

	sensitivity, err := domain.ParseSensitivity(mode)
	if err != nil {
		return domain.InputPath{}, zerr.With(zerr.Wrap(err, "bad --input value"), "input", raw)
	}
	if path == "" {
		return domain.InputPath{}, zerr.With(zerr.Wrap(domain.ErrInputMissing, "empty input path"), "input", raw)
	}

	return domain.InputPath{
		Path:        domain.NewInternedString(path),
		Sensitivity: sensitivity,
	}, nil
}
