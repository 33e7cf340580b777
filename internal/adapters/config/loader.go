// Package config loads stow.yaml project files and the settings layered on top
// of them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/stow/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// SupportedVersion is the project file version this loader understands.
const SupportedVersion = "1"

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds the nearest stow.yaml at or above cwd and returns its project.
func (l *Loader) Load(cwd string) (*domain.Project, error) {
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrFailedToGetRoot.Error())
	}

	configPath, err := findProjectFile(abs)
	if err != nil {
		return nil, err
	}

	var file Projectfile
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, err
	}

	if file.Version != "" && file.Version != SupportedVersion {
		l.Logger.Warn(fmt.Sprintf("%s declares version %q, this stow understands version %q",
			domain.ProjectFileName, file.Version, SupportedVersion))
	}

	root := resolveRoot(configPath, file.Root)

	settings, err := loadSettings(configPath, root)
	if err != nil {
		return nil, err
	}

	project := domain.NewProject(root, settings)
	project.ConfigPath = configPath

	names := make([]string, 0, len(file.Tasks))
	for name := range file.Tasks {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		task, err := buildTask(name, file.Tasks[name], root)
		if err != nil {
			return nil, zerr.With(err, "task", name)
		}
		project.AddTask(task)
	}

	return project, nil
}

// Defaults returns a task-less project rooted at cwd. Settings come from the
// defaults and the environment only.
func (l *Loader) Defaults(cwd string) (*domain.Project, error) {
	root, err := filepath.Abs(cwd)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrFailedToGetRoot.Error())
	}

	settings, err := loadSettings("", root)
	if err != nil {
		return nil, err
	}

	return domain.NewProject(root, settings), nil
}

func findProjectFile(cwd string) (string, error) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ProjectFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, "no project file at or above the working directory"), "cwd", cwd)
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

// readAndUnmarshalYAML reads a YAML file and strictly decodes it into target.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is found by walking up from the working directory
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(domain.ErrConfigReadFailed, err.Error())
	}

	dec := yaml.NewDecoder(bytes.NewReader(configFile))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, err.Error()), "path", configPath)
	}

	return nil
}

func buildTask(name string, dto *TaskDTO, root string) (*domain.Task, error) {
	if err := domain.ValidateTaskName(name); err != nil {
		return nil, zerr.Wrap(err, "task names must be non-empty and contain no whitespace or slashes")
	}
	if dto == nil || len(dto.Cmd) == 0 {
		return nil, zerr.Wrap(domain.ErrEmptyCommand, "cmd must list the program and its arguments")
	}

	inputs := make([]domain.InputPath, 0, len(dto.Input))
	for _, in := range dto.Input {
		sensitivity, err := domain.ParseSensitivity(in.Sensitivity)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "bad input declaration"), "path", in.Path)
		}
		inputs = append(inputs, domain.InputPath{
			Path:        domain.NewInternedString(in.Path),
			Sensitivity: sensitivity,
		})
	}

	for _, out := range dto.Target {
		if !filepath.IsLocal(filepath.FromSlash(out)) {
			return nil, zerr.With(zerr.Wrap(domain.ErrOutputPathOutsideRoot, "targets must be relative paths inside the root"), "path", out)
		}
	}

	var timeout time.Duration
	if dto.Timeout != "" {
		d, err := time.ParseDuration(dto.Timeout)
		if err != nil || d < 0 {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidTimeout, "expected a duration such as 90s or 5m"), "timeout", dto.Timeout)
		}
		timeout = d
	}

	cache := true
	if dto.Cache != nil {
		cache = *dto.Cache
	}

	return &domain.Task{
		Name:        domain.NewInternedString(name),
		Command:     dto.Cmd,
		Inputs:      inputs,
		Outputs:     canonicalizeStrings(dto.Target),
		Environment: dto.Environment,
		Root:        domain.NewInternedString(root),
		WorkingDir:  resolveTaskWorkingDir(root, dto.WorkingDir),
		Cache:       cache,
		Timeout:     timeout,
	}, nil
}

// canonicalizeStrings sorts, deduplicates and interns strs.
func canonicalizeStrings(strs []string) []domain.InternedString {
	if len(strs) == 0 {
		return nil
	}

	sorted := make([]string, len(strs))
	for i, s := range strs {
		sorted[i] = filepath.ToSlash(filepath.Clean(filepath.FromSlash(s)))
	}
	slices.Sort(sorted)

	return domain.NewInternedStrings(slices.Compact(sorted))
}

// resolveTaskWorkingDir resolves the working directory for a task.
// An empty value means the root; a relative value is joined with the root.
func resolveTaskWorkingDir(root, configuredWorkingDir string) domain.InternedString {
	if configuredWorkingDir == "" {
		return domain.NewInternedString(root)
	}

	if filepath.IsAbs(configuredWorkingDir) {
		return domain.NewInternedString(filepath.Clean(configuredWorkingDir))
	}

	return domain.NewInternedString(filepath.Clean(filepath.Join(root, configuredWorkingDir)))
}
