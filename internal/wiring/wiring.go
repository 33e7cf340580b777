// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/stow/internal/adapters/cas"
	_ "go.trai.ch/stow/internal/adapters/config"
	_ "go.trai.ch/stow/internal/adapters/fs"
	_ "go.trai.ch/stow/internal/adapters/logger"
	_ "go.trai.ch/stow/internal/adapters/shell"
	_ "go.trai.ch/stow/internal/adapters/state"
	// Register app and engine nodes.
	_ "go.trai.ch/stow/internal/app"
	_ "go.trai.ch/stow/internal/engine/runner"
)
