package domain

import (
	"slices"
	"strings"
)

// Settings holds the cache and logging switches that apply to a whole invocation.
type Settings struct {
	// CacheEnabled is the global toggle for cache lookup and population.
	CacheEnabled bool
	// SharedCache enables the content-addressed shared tier.
	SharedCache bool
	// CacheDir is the absolute path of the shared cache directory.
	CacheDir string
	// LogFormat is "pretty" or "json".
	LogFormat string
}

// Project is a loaded stow.yaml: a root directory, its tasks and the effective settings.
type Project struct {
	Root       string
	ConfigPath string
	Settings   Settings
	tasks      map[string]*Task
}

// NewProject creates an empty project anchored at root.
func NewProject(root string, settings Settings) *Project {
	return &Project{
		Root:     root,
		Settings: settings,
		tasks:    make(map[string]*Task),
	}
}

// AddTask registers a task. Later registrations with the same name replace earlier ones.
func (p *Project) AddTask(t *Task) {
	p.tasks[t.Name.String()] = t
}

// Task returns the task with the given name.
func (p *Project) Task(name string) (*Task, bool) {
	t, ok := p.tasks[name]
	return t, ok
}

// TaskNames returns all task names in sorted order.
func (p *Project) TaskNames() []string {
	names := make([]string, 0, len(p.tasks))
	for name := range p.tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateTaskName rejects names that cannot be used as cache keys or CLI arguments.
func ValidateTaskName(name string) error {
	if name == "" || strings.ContainsAny(name, " \t\n/\\") {
		return ErrInvalidTaskName
	}
	return nil
}
