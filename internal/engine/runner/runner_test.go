package runner_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stow/internal/adapters/telemetry"
	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/stow/internal/core/ports"
	"go.trai.ch/stow/internal/core/ports/mocks"
	"go.trai.ch/stow/internal/engine/runner"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

const fp = domain.Fingerprint("0123456789abcdef")

type runnerTestMocks struct {
	executor      *mocks.MockExecutor
	fingerprinter *mocks.MockFingerprinter
	verifier      *mocks.MockOutputVerifier
	logger        *mocks.MockLogger
	local         *mocks.MockCacheStore
	shared        *mocks.MockCacheStore
}

func setupRunnerTest(t *testing.T) (*runner.Runner, runnerTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := runnerTestMocks{
		executor:      mocks.NewMockExecutor(ctrl),
		fingerprinter: mocks.NewMockFingerprinter(ctrl),
		verifier:      mocks.NewMockOutputVerifier(ctrl),
		logger:        mocks.NewMockLogger(ctrl),
		local:         mocks.NewMockCacheStore(ctrl),
		shared:        mocks.NewMockCacheStore(ctrl),
	}
	m.local.EXPECT().Source().Return(domain.SourceLocal).AnyTimes()
	m.shared.EXPECT().Source().Return(domain.SourceShared).AnyTimes()

	return runner.NewRunner(m.executor, m.fingerprinter, m.verifier, m.logger), m
}

func (m runnerTestMocks) options() runner.Options {
	return runner.Options{
		Tracer: telemetry.NewNoOpTracer(),
		Tiers:  []ports.CacheStore{m.local, m.shared},
		Jobs:   2,
		RunID:  "run-1",
	}
}

func bundleTask() *domain.Task {
	return &domain.Task{
		Name:    domain.NewInternedString("bundle"),
		Command: []string{"npx", "webpack"},
		Inputs:  []domain.InputPath{{Path: domain.NewInternedString("app")}},
		Outputs: domain.NewInternedStrings([]string{"build/js"}),
		Root:    domain.NewInternedString("/work"),
		Cache:   true,
	}
}

var key = domain.CacheKey{Task: "bundle", Fingerprint: fp}

func runOne(t *testing.T, r *runner.Runner, task *domain.Task, opts runner.Options) (domain.TaskResult, error) {
	t.Helper()
	results, err := r.Run(context.Background(), []*domain.Task{task}, opts)
	require.Len(t, results, 1)
	return results[0], err
}

func TestRunner_MissExecutesAndPopulates(t *testing.T) {
	r, m := setupRunnerTest(t)
	task := bundleTask()
	spec := task.OutputSpec()

	gomock.InOrder(
		m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).Return(fp, nil),
		m.local.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss),
		m.shared.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss),
		m.verifier.EXPECT().CleanOutputs(spec).Return(nil),
		m.executor.EXPECT().Execute(gomock.Any(), task, gomock.Any(), gomock.Any()).Return(nil),
		m.verifier.EXPECT().VerifyOutputs(spec).Return(nil),
		m.local.EXPECT().Put(gomock.Any(), key, spec).Return(&domain.Snapshot{}, nil),
		m.shared.EXPECT().Put(gomock.Any(), key, spec).Return(&domain.Snapshot{}, nil),
	)

	res, err := runOne(t, r, task, m.options())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeExecuted, res.Outcome)
	assert.Equal(t, fp, res.Fingerprint)
	assert.Equal(t, "executed", res.Label())
}

func TestRunner_LocalHitSkipsExecution(t *testing.T) {
	r, m := setupRunnerTest(t)
	task := bundleTask()
	snap := &domain.Snapshot{Fingerprint: fp}

	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).Return(fp, nil)
	m.local.EXPECT().Get(gomock.Any(), key).Return(snap, nil)
	m.local.EXPECT().Restore(gomock.Any(), snap, "/work").Return(nil)

	res, err := runOne(t, r, task, m.options())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRestored, res.Outcome)
	assert.Equal(t, domain.SourceLocal, res.Source)
	assert.Equal(t, "up-to-date", res.Label())
}

func TestRunner_SharedHitRecordsLocalEntry(t *testing.T) {
	r, m := setupRunnerTest(t)
	task := bundleTask()
	snap := &domain.Snapshot{Fingerprint: fp}

	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).Return(fp, nil)
	m.local.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss)
	m.shared.EXPECT().Get(gomock.Any(), key).Return(snap, nil)
	m.shared.EXPECT().Restore(gomock.Any(), snap, "/work").Return(nil)
	m.local.EXPECT().Put(gomock.Any(), key, task.OutputSpec()).Return(&domain.Snapshot{}, nil)

	res, err := runOne(t, r, task, m.options())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRestored, res.Outcome)
	assert.Equal(t, domain.SourceShared, res.Source)
	assert.Equal(t, "restored from cache", res.Label())
}

func TestRunner_CorruptEntryFallsBackToExecute(t *testing.T) {
	r, m := setupRunnerTest(t)
	task := bundleTask()
	snap := &domain.Snapshot{Fingerprint: fp}

	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).Return(fp, nil)
	m.local.EXPECT().Get(gomock.Any(), key).Return(nil, zerr.Wrap(domain.ErrCacheCorrupt, "unreadable manifest"))
	m.shared.EXPECT().Get(gomock.Any(), key).Return(snap, nil)
	m.shared.EXPECT().Restore(gomock.Any(), snap, "/work").Return(zerr.Wrap(domain.ErrCacheCorrupt, "blob digest mismatch"))
	m.logger.EXPECT().Warn(gomock.Any()).Times(2)

	m.verifier.EXPECT().CleanOutputs(gomock.Any()).Return(nil)
	m.executor.EXPECT().Execute(gomock.Any(), task, gomock.Any(), gomock.Any()).Return(nil)
	m.verifier.EXPECT().VerifyOutputs(gomock.Any()).Return(nil)
	m.local.EXPECT().Put(gomock.Any(), key, gomock.Any()).Return(&domain.Snapshot{}, nil)
	m.shared.EXPECT().Put(gomock.Any(), key, gomock.Any()).Return(&domain.Snapshot{}, nil)

	res, err := runOne(t, r, task, m.options())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeExecuted, res.Outcome)
}

func TestRunner_PutFailureOnlyWarns(t *testing.T) {
	r, m := setupRunnerTest(t)
	task := bundleTask()

	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).Return(fp, nil)
	m.local.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss)
	m.shared.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss)
	m.verifier.EXPECT().CleanOutputs(gomock.Any()).Return(nil)
	m.executor.EXPECT().Execute(gomock.Any(), task, gomock.Any(), gomock.Any()).Return(nil)
	m.verifier.EXPECT().VerifyOutputs(gomock.Any()).Return(nil)
	m.local.EXPECT().Put(gomock.Any(), key, gomock.Any()).Return(&domain.Snapshot{}, nil)
	m.shared.EXPECT().Put(gomock.Any(), key, gomock.Any()).Return(nil, domain.ErrStoreWriteFailed)
	m.logger.EXPECT().Warn(gomock.Any()).Times(1)

	res, err := runOne(t, r, task, m.options())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeExecuted, res.Outcome)
}

func TestRunner_InputMissingFailsBeforeExecution(t *testing.T) {
	r, m := setupRunnerTest(t)
	task := bundleTask()

	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).
		Return(domain.Fingerprint(""), zerr.With(zerr.Wrap(domain.ErrInputMissing, "declared input does not exist"), "path", "app"))

	res, err := runOne(t, r, task, m.options())
	require.ErrorIs(t, err, domain.ErrInputMissing)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, domain.ReasonInputMissing, res.Reason)
	assert.True(t, res.Failed())
}

func TestRunner_CommandFailureIsNotCached(t *testing.T) {
	r, m := setupRunnerTest(t)
	task := bundleTask()

	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).Return(fp, nil)
	m.local.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss)
	m.shared.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss)
	m.verifier.EXPECT().CleanOutputs(gomock.Any()).Return(nil)
	m.executor.EXPECT().Execute(gomock.Any(), task, gomock.Any(), gomock.Any()).
		Return(zerr.With(zerr.Wrap(domain.ErrExternalCommandFailed, "npx exited with code 2"), domain.ExitCodeKey, 2))

	res, err := runOne(t, r, task, m.options())
	require.ErrorIs(t, err, domain.ErrExternalCommandFailed)
	assert.Equal(t, domain.ReasonCommandFailed, res.Reason)
	assert.Equal(t, 2, res.ExitCode)

	code, ok := domain.ExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 2, code)
}

func TestRunner_OutputMissing(t *testing.T) {
	r, m := setupRunnerTest(t)
	task := bundleTask()

	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).Return(fp, nil)
	m.local.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss)
	m.shared.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss)
	m.verifier.EXPECT().CleanOutputs(gomock.Any()).Return(nil)
	m.executor.EXPECT().Execute(gomock.Any(), task, gomock.Any(), gomock.Any()).Return(nil)
	m.verifier.EXPECT().VerifyOutputs(gomock.Any()).Return(zerr.Wrap(domain.ErrOutputMissing, "declared output was not produced"))

	res, err := runOne(t, r, task, m.options())
	require.ErrorIs(t, err, domain.ErrOutputMissing)
	assert.Equal(t, domain.ReasonOutputMissing, res.Reason)
}

func TestRunner_CacheDisabled(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Task, *runner.Options)
	}{
		{"task opts out", func(task *domain.Task, _ *runner.Options) { task.Cache = false }},
		{"no-cache invocation", func(_ *domain.Task, opts *runner.Options) { opts.NoCache = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, m := setupRunnerTest(t)
			task := bundleTask()
			opts := m.options()
			tt.mutate(task, &opts)

			m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).Return(fp, nil)
			m.verifier.EXPECT().CleanOutputs(gomock.Any()).Return(nil)
			m.executor.EXPECT().Execute(gomock.Any(), task, gomock.Any(), gomock.Any()).Return(nil)
			m.verifier.EXPECT().VerifyOutputs(gomock.Any()).Return(nil)

			res, err := runOne(t, r, task, opts)
			require.NoError(t, err)
			assert.Equal(t, domain.OutcomeExecuted, res.Outcome)
		})
	}
}

func TestRunner_Timeout(t *testing.T) {
	r, m := setupRunnerTest(t)
	task := bundleTask()
	task.Cache = false
	task.Timeout = 20 * time.Millisecond

	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).Return(fp, nil)
	m.verifier.EXPECT().CleanOutputs(gomock.Any()).Return(nil)
	m.executor.EXPECT().Execute(gomock.Any(), task, gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *domain.Task, _, _ io.Writer) error {
			<-ctx.Done()
			return zerr.Wrap(ctx.Err(), "command interrupted")
		},
	)

	res, err := runOne(t, r, task, m.options())
	require.ErrorIs(t, err, domain.ErrTaskTimeout)
	assert.Equal(t, domain.ReasonTimeout, res.Reason)
}

func TestRunner_CanceledWritesNoEntry(t *testing.T) {
	r, m := setupRunnerTest(t)
	task := bundleTask()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).Return(fp, nil)
	m.local.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss)
	m.shared.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss)
	m.verifier.EXPECT().CleanOutputs(gomock.Any()).Return(nil)
	m.executor.EXPECT().Execute(gomock.Any(), task, gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *domain.Task, _, _ io.Writer) error {
			cancel()
			<-ctx.Done()
			return zerr.Wrap(ctx.Err(), "command interrupted")
		},
	)

	results, err := r.Run(ctx, []*domain.Task{task}, m.options())
	require.ErrorIs(t, err, domain.ErrTaskCanceled)
	assert.Equal(t, domain.ReasonCanceled, results[0].Reason)
}

func TestRunner_IndependentTasks(t *testing.T) {
	r, m := setupRunnerTest(t)
	bundle := bundleTask()
	lint := bundleTask()
	lint.Name = domain.NewInternedString("lint")
	lint.Cache = false

	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), bundle).Return(fp, nil)
	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), lint).Return(domain.Fingerprint("fedcba9876543210"), nil)
	m.local.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss)
	m.shared.EXPECT().Get(gomock.Any(), key).Return(nil, domain.ErrCacheMiss)
	m.verifier.EXPECT().CleanOutputs(gomock.Any()).Return(nil).Times(2)
	m.executor.EXPECT().Execute(gomock.Any(), bundle, gomock.Any(), gomock.Any()).
		Return(zerr.With(zerr.Wrap(domain.ErrExternalCommandFailed, "npx exited with code 1"), domain.ExitCodeKey, 1))
	m.executor.EXPECT().Execute(gomock.Any(), lint, gomock.Any(), gomock.Any()).Return(nil)
	m.verifier.EXPECT().VerifyOutputs(gomock.Any()).Return(nil)

	results, err := r.Run(context.Background(), []*domain.Task{bundle, lint}, m.options())
	require.Error(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "bundle", results[0].Task)
	assert.Equal(t, domain.OutcomeFailed, results[0].Outcome)
	assert.Equal(t, "lint", results[1].Task)
	assert.Equal(t, domain.OutcomeExecuted, results[1].Outcome)

	var z *zerr.Error
	require.True(t, errors.As(err, &z))
	assert.Equal(t, "bundle", z.Metadata()["task"])
}

func TestRunner_NoTasks(t *testing.T) {
	r, m := setupRunnerTest(t)
	_, err := r.Run(context.Background(), nil, m.options())
	require.ErrorIs(t, err, domain.ErrNoTargetsSpecified)
}

func TestRunner_SpanAttributes(t *testing.T) {
	r, m := setupRunnerTest(t)
	ctrl := gomock.NewController(t)
	tracer := mocks.NewMockTracer(ctrl)
	span := mocks.NewMockSpan(ctrl)
	task := bundleTask()
	snap := &domain.Snapshot{Fingerprint: fp}

	tracer.EXPECT().EmitPlan(gomock.Any(), []string{"bundle"})
	tracer.EXPECT().Start(gomock.Any(), "bundle", gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, opts ...ports.SpanOption) (context.Context, ports.Span) {
			var cfg ports.SpanConfig
			for _, opt := range opts {
				opt(&cfg)
			}
			assert.Equal(t, "run-1", cfg.Attributes[domain.AttrRunID])
			return ctx, span
		},
	)
	gomock.InOrder(
		span.EXPECT().SetAttribute(domain.AttrFingerprint, fp.String()),
		span.EXPECT().SetAttribute(domain.AttrOutcome, string(domain.OutcomeRestored)),
		span.EXPECT().SetAttribute(domain.AttrSource, string(domain.SourceLocal)),
		span.EXPECT().End(),
	)

	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).Return(fp, nil)
	m.local.EXPECT().Get(gomock.Any(), key).Return(snap, nil)
	m.local.EXPECT().Restore(gomock.Any(), snap, "/work").Return(nil)

	opts := m.options()
	opts.Tracer = tracer
	_, err := r.Run(context.Background(), []*domain.Task{task}, opts)
	require.NoError(t, err)
}

func TestRunner_SpanRecordsFailure(t *testing.T) {
	r, m := setupRunnerTest(t)
	ctrl := gomock.NewController(t)
	tracer := mocks.NewMockTracer(ctrl)
	span := mocks.NewMockSpan(ctrl)
	task := bundleTask()

	tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any())
	tracer.EXPECT().Start(gomock.Any(), "bundle", gomock.Any()).Return(context.Background(), span)
	gomock.InOrder(
		span.EXPECT().SetAttribute(domain.AttrOutcome, string(domain.OutcomeFailed)),
		span.EXPECT().SetAttribute(domain.AttrReason, string(domain.ReasonInputMissing)),
		span.EXPECT().RecordError(gomock.Any()),
		span.EXPECT().End(),
	)

	m.fingerprinter.EXPECT().ComputeTaskFingerprint(gomock.Any(), task).Return(domain.Fingerprint(""), domain.ErrInputMissing)

	opts := m.options()
	opts.Tracer = tracer
	_, err := r.Run(context.Background(), []*domain.Task{task}, opts)
	require.ErrorIs(t, err, domain.ErrInputMissing)
}
