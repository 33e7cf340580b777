package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stow/internal/adapters/fs"
	"go.trai.ch/stow/internal/core/domain"
)

func newFingerprinter() *fs.Fingerprinter {
	return fs.NewFingerprinter(fs.NewWalker(), fs.NewResolver())
}

func bundleProject(t *testing.T, root string) {
	t.Helper()
	mustWriteFile(t, root, "package-lock.json", `{"lockfileVersion": 3}`)
	mustWriteFile(t, root, "app/index.js", "console.log('A')")
	mustWriteFile(t, root, "app/lib/util.js", "export const x = 1")
}

func inputSpec(root string, sensitivity domain.PathSensitivity, paths ...string) domain.InputSpec {
	spec := domain.InputSpec{Root: root}
	for _, p := range paths {
		spec.Paths = append(spec.Paths, domain.InputPath{
			Path:        domain.NewInternedString(p),
			Sensitivity: sensitivity,
		})
	}
	return spec
}

func TestFingerprinter_ComputeFileHash(t *testing.T) {
	tmpDir := t.TempDir()
	mustWriteFile(t, tmpDir, "hello.txt", "hello world")

	f := newFingerprinter()
	hash1, err := f.ComputeFileHash(filepath.Join(tmpDir, "hello.txt"))
	require.NoError(t, err)
	assert.NotZero(t, hash1)

	hash2, err := f.ComputeFileHash(filepath.Join(tmpDir, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)

	_, err = f.ComputeFileHash(filepath.Join(tmpDir, "missing.txt"))
	require.ErrorContains(t, err, domain.ErrFileOpenFailed.Error())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFingerprinter_Deterministic(t *testing.T) {
	root := t.TempDir()
	bundleProject(t, root)

	f := newFingerprinter()
	spec := inputSpec(root, domain.SensitivityRelative, "package-lock.json", "app")

	fp1, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)
	fp2, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1.String(), 16)
}

func TestFingerprinter_ContentSensitive(t *testing.T) {
	root := t.TempDir()
	bundleProject(t, root)

	f := newFingerprinter()
	spec := inputSpec(root, domain.SensitivityRelative, "package-lock.json", "app")

	before, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)

	mustWriteFile(t, root, "app/lib/util.js", "export const x = 2")
	changed, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)
	assert.NotEqual(t, before, changed)

	mustWriteFile(t, root, "app/lib/util.js", "export const x = 1")
	reverted, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, before, reverted)
}

func TestFingerprinter_FileSetSensitive(t *testing.T) {
	root := t.TempDir()
	bundleProject(t, root)

	f := newFingerprinter()
	spec := inputSpec(root, domain.SensitivityRelative, "app")

	before, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)

	mustWriteFile(t, root, "app/extra.js", "")
	added, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)
	assert.NotEqual(t, before, added)

	require.NoError(t, os.Rename(filepath.Join(root, "app", "extra.js"), filepath.Join(root, "app", "renamed.js")))
	renamed, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)
	assert.NotEqual(t, added, renamed)
}

func TestFingerprinter_IgnoresMetadataDirs(t *testing.T) {
	root := t.TempDir()
	bundleProject(t, root)

	f := newFingerprinter()
	spec := inputSpec(root, domain.SensitivityRelative, "app")

	before, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)

	mustWriteFile(t, root, "app/.git/HEAD", "ref: refs/heads/main")
	mustWriteFile(t, root, "app/.stow/state.db", "x")
	after, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestFingerprinter_RelocationInvariant(t *testing.T) {
	rootA := filepath.Join(t.TempDir(), "checkout-a")
	rootB := filepath.Join(t.TempDir(), "nested", "checkout-b")
	bundleProject(t, rootA)
	bundleProject(t, rootB)

	f := newFingerprinter()

	fpA, err := f.ComputeInputFingerprint(context.Background(), inputSpec(rootA, domain.SensitivityRelative, "package-lock.json", "app"))
	require.NoError(t, err)
	fpB, err := f.ComputeInputFingerprint(context.Background(), inputSpec(rootB, domain.SensitivityRelative, "package-lock.json", "app"))
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
}

func TestFingerprinter_RelocationInvariant_AbsoluteDeclaredPath(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	bundleProject(t, rootA)
	bundleProject(t, rootB)

	f := newFingerprinter()

	fpA, err := f.ComputeInputFingerprint(context.Background(), inputSpec(rootA, domain.SensitivityRelative, filepath.Join(rootA, "app")))
	require.NoError(t, err)
	fpB, err := f.ComputeInputFingerprint(context.Background(), inputSpec(rootB, domain.SensitivityRelative, filepath.Join(rootB, "app")))
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
}

func TestFingerprinter_AbsoluteSensitive(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	bundleProject(t, rootA)
	bundleProject(t, rootB)

	f := newFingerprinter()

	fpA, err := f.ComputeInputFingerprint(context.Background(), inputSpec(rootA, domain.SensitivityAbsolute, "app"))
	require.NoError(t, err)
	fpB, err := f.ComputeInputFingerprint(context.Background(), inputSpec(rootB, domain.SensitivityAbsolute, "app"))
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpB)

	relA, err := f.ComputeInputFingerprint(context.Background(), inputSpec(rootA, domain.SensitivityRelative, "app"))
	require.NoError(t, err)
	assert.NotEqual(t, fpA, relA)
}

func TestFingerprinter_DefaultSensitivityIsRelative(t *testing.T) {
	root := t.TempDir()
	bundleProject(t, root)

	f := newFingerprinter()

	implicit, err := f.ComputeInputFingerprint(context.Background(), inputSpec(root, "", "app"))
	require.NoError(t, err)
	explicit, err := f.ComputeInputFingerprint(context.Background(), inputSpec(root, domain.SensitivityRelative, "app"))
	require.NoError(t, err)

	assert.Equal(t, explicit, implicit)
}

func TestFingerprinter_InputMissing(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, root, "package-lock.json", "{}")

	f := newFingerprinter()
	_, err := f.ComputeInputFingerprint(context.Background(), inputSpec(root, domain.SensitivityRelative, "package-lock.json", "app"))

	require.ErrorIs(t, err, domain.ErrInputMissing)
}

func TestFingerprinter_SymlinkedDirectory(t *testing.T) {
	linked := t.TempDir()
	mustWriteFile(t, linked, "app/index.js", "console.log('A')")
	mustWriteFile(t, linked, "shared/util.js", "export const x = 1")
	require.NoError(t, os.Symlink(filepath.Join("..", "shared"), filepath.Join(linked, "app", "lib")))

	copied := t.TempDir()
	bundleProject(t, copied)

	f := newFingerprinter()
	viaLink, err := f.ComputeInputFingerprint(context.Background(), inputSpec(linked, domain.SensitivityRelative, "app"))
	require.NoError(t, err)
	plain, err := f.ComputeInputFingerprint(context.Background(), inputSpec(copied, domain.SensitivityRelative, "app"))
	require.NoError(t, err)
	assert.Equal(t, plain, viaLink)

	mustWriteFile(t, linked, "shared/util.js", "export const x = 2")
	changed, err := f.ComputeInputFingerprint(context.Background(), inputSpec(linked, domain.SensitivityRelative, "app"))
	require.NoError(t, err)
	assert.NotEqual(t, viaLink, changed)
}

func TestFingerprinter_SymlinkedFile(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, root, "vendor/lock.json", `{"lockfileVersion": 3}`)
	require.NoError(t, os.Symlink(filepath.Join("vendor", "lock.json"), filepath.Join(root, "package-lock.json")))

	f := newFingerprinter()
	spec := inputSpec(root, domain.SensitivityRelative, "package-lock.json")

	before, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)

	mustWriteFile(t, root, "vendor/lock.json", `{"lockfileVersion": 2}`)
	after, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestFingerprinter_UnreadableEntryFails(t *testing.T) {
	root := t.TempDir()
	bundleProject(t, root)
	require.NoError(t, os.Symlink("loop", filepath.Join(root, "app", "loop")))

	_, err := newFingerprinter().ComputeInputFingerprint(context.Background(), inputSpec(root, domain.SensitivityRelative, "app"))
	require.ErrorContains(t, err, domain.ErrPathStatFailed.Error())
}

func TestFingerprinter_Globs(t *testing.T) {
	root := t.TempDir()
	bundleProject(t, root)

	f := newFingerprinter()
	spec := inputSpec(root, domain.SensitivityRelative, "app/*.js")

	before, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)

	mustWriteFile(t, root, "app/index.js", "console.log('B')")
	after, err := f.ComputeInputFingerprint(context.Background(), spec)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	_, err = f.ComputeInputFingerprint(context.Background(), inputSpec(root, domain.SensitivityRelative, "app/*.ts"))
	require.ErrorIs(t, err, domain.ErrInputMissing)
}

func TestFingerprinter_Canceled(t *testing.T) {
	root := t.TempDir()
	bundleProject(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFingerprinter().ComputeInputFingerprint(ctx, inputSpec(root, domain.SensitivityRelative, "app"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestFingerprinter_ComputeTaskFingerprint(t *testing.T) {
	root := t.TempDir()
	bundleProject(t, root)

	newTask := func() *domain.Task {
		return &domain.Task{
			Name:    domain.NewInternedString("bundle"),
			Command: []string{"npx", "webpack"},
			Inputs: []domain.InputPath{
				{Path: domain.NewInternedString("package-lock.json")},
				{Path: domain.NewInternedString("app")},
			},
			Outputs:     domain.NewInternedStrings([]string{"build/js"}),
			Environment: map[string]string{"NODE_ENV": "production"},
			Root:        domain.NewInternedString(root),
		}
	}

	f := newFingerprinter()
	base, err := f.ComputeTaskFingerprint(context.Background(), newTask())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*domain.Task)
		same   bool
	}{
		{"identical", func(*domain.Task) {}, true},
		{"renamed task", func(t *domain.Task) { t.Name = domain.NewInternedString("other") }, true},
		{"timeout", func(t *domain.Task) { t.Timeout = 5 }, true},
		{"command", func(t *domain.Task) { t.Command = []string{"npx", "webpack", "--mode", "development"} }, false},
		{"argv split", func(t *domain.Task) { t.Command = []string{"npx webpack"} }, false},
		{"outputs", func(t *domain.Task) { t.Outputs = domain.NewInternedStrings([]string{"build/css"}) }, false},
		{"environment", func(t *domain.Task) { t.Environment = map[string]string{"NODE_ENV": "development"} }, false},
		{"working dir", func(t *domain.Task) { t.WorkingDir = domain.NewInternedString(filepath.Join(root, "app")) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newTask()
			tt.mutate(task)

			got, err := f.ComputeTaskFingerprint(context.Background(), task)
			require.NoError(t, err)

			if tt.same {
				assert.Equal(t, base, got)
			} else {
				assert.NotEqual(t, base, got)
			}
		})
	}
}
