// Package runner drives tasks through fingerprinting, the cache tiers and execution.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/stow/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Runner executes tasks, restoring their outputs from the cache tiers when the
// fingerprint of their inputs has been seen before.
type Runner struct {
	executor      ports.Executor
	fingerprinter ports.Fingerprinter
	verifier      ports.OutputVerifier
	logger        ports.Logger
}

// NewRunner creates a new Runner with the given dependencies.
func NewRunner(
	executor ports.Executor,
	fingerprinter ports.Fingerprinter,
	verifier ports.OutputVerifier,
	logger ports.Logger,
) *Runner {
	return &Runner{
		executor:      executor,
		fingerprinter: fingerprinter,
		verifier:      verifier,
		logger:        logger,
	}
}

// Options configure a single invocation.
type Options struct {
	// Tracer receives the plan and one span per task.
	Tracer ports.Tracer
	// Tiers are consulted in order on lookup and all written on populate.
	Tiers []ports.CacheStore
	// Jobs bounds the number of tasks running at once. Zero means one per CPU.
	Jobs int
	// NoCache skips lookup and populate for every task.
	NoCache bool
	// RunID is attached to every task span.
	RunID string
}

// Run executes tasks concurrently and returns their results in the order given.
// The returned error joins the failure of every failed task.
func (r *Runner) Run(ctx context.Context, tasks []*domain.Task, opts Options) ([]domain.TaskResult, error) {
	if len(tasks) == 0 {
		return nil, domain.ErrNoTargetsSpecified
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name.String()
	}
	opts.Tracer.EmitPlan(ctx, names)

	results := make([]domain.TaskResult, len(tasks))

	// Tasks are independent, a failure does not cancel the others.
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = r.runTask(ctx, t, opts)
			return nil
		})
	}
	_ = g.Wait()

	var errs error
	for _, res := range results {
		if res.Err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(res.Err, domain.ErrTaskExecutionFailed.Error()), "task", res.Task))
		}
	}

	return results, errs
}

func (r *Runner) runTask(ctx context.Context, task *domain.Task, opts Options) (res domain.TaskResult) {
	start := time.Now()
	res.Task = task.Name.String()

	ctx, span := opts.Tracer.Start(ctx, res.Task, ports.WithAttribute(domain.AttrRunID, opts.RunID))
	defer func() {
		res.Duration = time.Since(start)
		span.SetAttribute(domain.AttrOutcome, string(res.Outcome))
		if res.Source != "" {
			span.SetAttribute(domain.AttrSource, string(res.Source))
		}
		if res.Failed() {
			span.SetAttribute(domain.AttrReason, string(res.Reason))
			span.RecordError(res.Err)
		}
		span.End()
	}()

	fail := func(err error) domain.TaskResult {
		err = interrupted(ctx, err)
		res.Outcome = domain.OutcomeFailed
		res.Err = err
		res.Reason = domain.ReasonOf(err)
		res.ExitCode, _ = domain.ExitCode(err)
		return res
	}

	fp, err := r.fingerprinter.ComputeTaskFingerprint(ctx, task)
	if err != nil {
		return fail(err)
	}
	res.Fingerprint = fp
	span.SetAttribute(domain.AttrFingerprint, fp.String())

	var tiers []ports.CacheStore
	if task.Cache && !opts.NoCache {
		tiers = opts.Tiers
	}
	key := domain.CacheKey{Task: res.Task, Fingerprint: fp}

	if source, ok := r.restore(ctx, task, key, tiers); ok {
		res.Outcome = domain.OutcomeRestored
		res.Source = source
		return res
	}

	if err := r.execute(ctx, task, span); err != nil {
		return fail(err)
	}

	r.populate(ctx, task, key, tiers)

	res.Outcome = domain.OutcomeExecuted
	return res
}

// restore walks the tiers in order and materializes the first usable entry.
// A hit in a later tier is also recorded in the earlier ones.
func (r *Runner) restore(ctx context.Context, task *domain.Task, key domain.CacheKey, tiers []ports.CacheStore) (domain.CacheSource, bool) {
	for i, tier := range tiers {
		if ctx.Err() != nil {
			return "", false
		}

		snap, err := tier.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, domain.ErrCacheMiss) {
				r.warn(task, fmt.Sprintf("ignoring %s cache entry", tier.Source()), err)
			}
			continue
		}

		if err := tier.Restore(ctx, snap, task.Root.String()); err != nil {
			r.warn(task, fmt.Sprintf("could not restore from %s cache", tier.Source()), err)
			continue
		}

		r.populate(ctx, task, key, tiers[:i])
		return tier.Source(), true
	}

	return "", false
}

func (r *Runner) execute(ctx context.Context, task *domain.Task, span ports.Span) error {
	spec := task.OutputSpec()
	if err := r.verifier.CleanOutputs(spec); err != nil {
		return err
	}

	runCtx := ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	if err := r.executor.Execute(runCtx, task, span, span); err != nil {
		if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return zerr.With(zerr.Wrap(domain.ErrTaskTimeout, fmt.Sprintf("killed after %s", task.Timeout)), "timeout", task.Timeout.String())
		}
		return err
	}

	return r.verifier.VerifyOutputs(spec)
}

func (r *Runner) populate(ctx context.Context, task *domain.Task, key domain.CacheKey, tiers []ports.CacheStore) {
	spec := task.OutputSpec()
	for _, tier := range tiers {
		if _, err := tier.Put(ctx, key, spec); err != nil {
			r.warn(task, fmt.Sprintf("could not store outputs in %s cache", tier.Source()), err)
		}
	}
}

func (r *Runner) warn(task *domain.Task, msg string, err error) {
	r.logger.Warn(fmt.Sprintf("[%s] %s: %v", task.Name, msg, err))
}

// interrupted reclassifies err as domain.ErrTaskCanceled when ctx was canceled.
func interrupted(ctx context.Context, err error) error {
	if ctx.Err() == nil || errors.Is(err, domain.ErrTaskCanceled) || errors.Is(err, domain.ErrTaskTimeout) {
		return err
	}
	return zerr.Wrap(domain.ErrTaskCanceled, err.Error())
}
