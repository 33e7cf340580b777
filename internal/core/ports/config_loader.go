package ports

import "go.trai.ch/stow/internal/core/domain"

// ConfigLoader loads the project definition.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load walks up from cwd to the nearest stow.yaml and returns the project it declares.
	Load(cwd string) (*domain.Project, error)

	// Defaults returns a task-less project rooted at cwd carrying the effective
	// settings. It is used for ad-hoc invocations without a project file.
	Defaults(cwd string) (*domain.Project, error)
}
