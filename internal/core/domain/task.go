package domain

import (
	"path/filepath"
	"time"
)

// PathSensitivity controls how much of an input's location contributes to its fingerprint.
type PathSensitivity string

const (
	// SensitivityRelative hashes paths relative to the project root, so relocating
	// the project does not change the fingerprint.
	SensitivityRelative PathSensitivity = "relative"
	// SensitivityAbsolute hashes absolute paths, so location is part of the fingerprint.
	SensitivityAbsolute PathSensitivity = "absolute"
)

// ParseSensitivity parses a sensitivity name. An empty name yields SensitivityRelative.
func ParseSensitivity(s string) (PathSensitivity, error) {
	switch PathSensitivity(s) {
	case "", SensitivityRelative:
		return SensitivityRelative, nil
	case SensitivityAbsolute:
		return SensitivityAbsolute, nil
	default:
		return "", ErrInvalidSensitivity
	}
}

// InputPath is a single declared input: a file, a directory tree or a glob pattern.
type InputPath struct {
	Path        InternedString
	Sensitivity PathSensitivity
}

// InputSpec is the ordered set of declared inputs of a task, resolved against Root.
type InputSpec struct {
	Root  string
	Paths []InputPath
}

// OutputSpec is the set of declared outputs of a task, relative to Root.
type OutputSpec struct {
	Root  string
	Paths []string
}

// Task represents a single cacheable external command.
// It uses InternedString for fields that are frequently repeated to save memory.
type Task struct {
	Name        InternedString
	Command     []string
	Inputs      []InputPath
	Outputs     []InternedString
	Environment map[string]string
	// Root is the directory that inputs and outputs are resolved against.
	Root InternedString
	// WorkingDir is the directory the command runs in. Empty means Root.
	WorkingDir InternedString
	// Cache disables cache lookup and population for this task when false.
	Cache   bool
	Timeout time.Duration
}

// InputSpec returns the task's declared inputs anchored at its root.
func (t *Task) InputSpec() InputSpec {
	return InputSpec{
		Root:  t.Root.String(),
		Paths: t.Inputs,
	}
}

// OutputSpec returns the task's declared outputs anchored at its root.
func (t *Task) OutputSpec() OutputSpec {
	paths := make([]string, len(t.Outputs))
	for i, out := range t.Outputs {
		paths[i] = out.String()
	}
	return OutputSpec{
		Root:  t.Root.String(),
		Paths: paths,
	}
}

// Dir returns the directory the command runs in.
func (t *Task) Dir() string {
	if wd := t.WorkingDir.String(); wd != "" {
		return wd
	}
	return t.Root.String()
}

// RelativeDir returns the working directory relative to the root in slash form,
// or "." when they are the same.
func (t *Task) RelativeDir() string {
	rel, err := filepath.Rel(t.Root.String(), t.Dir())
	if err != nil {
		return filepath.ToSlash(t.Dir())
	}
	return filepath.ToSlash(rel)
}
