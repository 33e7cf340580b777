package domain_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestLayoutPaths(t *testing.T) {
	root := filepath.Join("srv", "app")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"DefaultStowPath", domain.DefaultStowPath(root), filepath.Join(root, ".stow")},
		{"DefaultCachePath", domain.DefaultCachePath(root), filepath.Join(root, ".stow", "cache")},
		{"DefaultStatePath", domain.DefaultStatePath(root), filepath.Join(root, ".stow", "state.db")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestParseSensitivity(t *testing.T) {
	got, err := domain.ParseSensitivity("")
	require.NoError(t, err)
	assert.Equal(t, domain.SensitivityRelative, got)

	got, err = domain.ParseSensitivity("absolute")
	require.NoError(t, err)
	assert.Equal(t, domain.SensitivityAbsolute, got)

	_, err = domain.ParseSensitivity("name-only")
	require.ErrorIs(t, err, domain.ErrInvalidSensitivity)
}

func TestTask_Specs(t *testing.T) {
	task := &domain.Task{
		Name: domain.NewInternedString("bundle"),
		Root: domain.NewInternedString("/work"),
		Inputs: []domain.InputPath{
			{Path: domain.NewInternedString("package-lock.json"), Sensitivity: domain.SensitivityRelative},
		},
		Outputs: domain.NewInternedStrings([]string{"build/js"}),
	}

	in := task.InputSpec()
	assert.Equal(t, "/work", in.Root)
	assert.Len(t, in.Paths, 1)

	out := task.OutputSpec()
	assert.Equal(t, "/work", out.Root)
	assert.Equal(t, []string{"build/js"}, out.Paths)

	assert.Equal(t, "/work", task.Dir())
	assert.Equal(t, ".", task.RelativeDir())

	task.WorkingDir = domain.NewInternedString("/work/app")
	assert.Equal(t, "/work/app", task.Dir())
	assert.Equal(t, "app", task.RelativeDir())
}

func TestProject_Tasks(t *testing.T) {
	p := domain.NewProject("/work", domain.Settings{CacheEnabled: true})
	p.AddTask(&domain.Task{Name: domain.NewInternedString("test")})
	p.AddTask(&domain.Task{Name: domain.NewInternedString("bundle")})

	assert.Equal(t, []string{"bundle", "test"}, p.TaskNames())

	_, ok := p.Task("bundle")
	assert.True(t, ok)
	_, ok = p.Task("missing")
	assert.False(t, ok)
}

func TestValidateTaskName(t *testing.T) {
	require.NoError(t, domain.ValidateTaskName("bundle-js"))
	require.ErrorIs(t, domain.ValidateTaskName(""), domain.ErrInvalidTaskName)
	require.ErrorIs(t, domain.ValidateTaskName("a b"), domain.ErrInvalidTaskName)
	require.ErrorIs(t, domain.ValidateTaskName("a/b"), domain.ErrInvalidTaskName)
}

func TestFingerprint_Short(t *testing.T) {
	assert.Equal(t, "0123abcd", domain.Fingerprint("0123abcdef456789").Short())
	assert.Equal(t, "abc", domain.Fingerprint("abc").Short())
	assert.True(t, domain.Fingerprint("").IsZero())
}

func TestSnapshot_TotalSize(t *testing.T) {
	snap := &domain.Snapshot{Files: []domain.SnapshotFile{{Size: 3}, {Size: 4}}}
	assert.Equal(t, int64(7), snap.TotalSize())
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.FailureReason
	}{
		{"nil", nil, domain.ReasonNone},
		{"input", zerr.With(zerr.Wrap(domain.ErrInputMissing, "fingerprint"), "path", "app"), domain.ReasonInputMissing},
		{"output", zerr.Wrap(domain.ErrOutputMissing, "verify"), domain.ReasonOutputMissing},
		{"exit", zerr.Wrap(domain.ErrExternalCommandFailed, "sh exited with code 2"), domain.ReasonCommandFailed},
		{"start", zerr.Wrap(domain.ErrCommandStartFailed, "nope"), domain.ReasonCommandFailed},
		{"timeout", zerr.Wrap(domain.ErrTaskTimeout, "5s"), domain.ReasonTimeout},
		{"canceled", errors.Join(domain.ErrTaskCanceled, errors.New("context canceled")), domain.ReasonCanceled},
		{"other", errors.New("disk full"), domain.ReasonInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ReasonOf(tt.err))
		})
	}
}

func TestExitCode(t *testing.T) {
	base := zerr.With(zerr.Wrap(domain.ErrExternalCommandFailed, "sh exited with code 3"), domain.ExitCodeKey, 3)

	code, ok := domain.ExitCode(base)
	require.True(t, ok)
	assert.Equal(t, 3, code)

	wrapped := zerr.With(zerr.Wrap(base, "task execution failed"), "task", "bundle")
	code, ok = domain.ExitCode(wrapped)
	require.True(t, ok)
	assert.Equal(t, 3, code)

	joined := errors.Join(domain.ErrBuildExecutionFailed, errors.New("other"), wrapped)
	code, ok = domain.ExitCode(joined)
	require.True(t, ok)
	assert.Equal(t, 3, code)

	_, ok = domain.ExitCode(errors.New("plain"))
	assert.False(t, ok)
	_, ok = domain.ExitCode(nil)
	assert.False(t, ok)
}

func TestTaskResult_Label(t *testing.T) {
	local := &domain.TaskResult{Outcome: domain.OutcomeRestored, Source: domain.SourceLocal}
	shared := &domain.TaskResult{Outcome: domain.OutcomeRestored, Source: domain.SourceShared}
	failed := &domain.TaskResult{Outcome: domain.OutcomeFailed}

	assert.Equal(t, "up-to-date", local.Label())
	assert.Equal(t, "restored from cache", shared.Label())
	assert.Equal(t, "failed", failed.Label())
	assert.True(t, failed.Failed())
	assert.False(t, local.Failed())
}
