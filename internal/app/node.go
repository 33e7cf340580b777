package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stow/internal/adapters/cas"    //nolint:depguard // Wired in app layer
	"go.trai.ch/stow/internal/adapters/config" //nolint:depguard // Wired in app layer
	"go.trai.ch/stow/internal/adapters/logger" //nolint:depguard // Wired in app layer
	"go.trai.ch/stow/internal/adapters/state"  //nolint:depguard // Wired in app layer
	"go.trai.ch/stow/internal/core/ports"
	"go.trai.ch/stow/internal/engine/runner"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			runner.NodeID,
			logger.NodeID,
			state.NodeID,
			cas.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	run, err := graft.Dep[*runner.Runner](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	local, err := graft.Dep[*state.Provider](ctx)
	if err != nil {
		return nil, err
	}

	shared, err := graft.Dep[*cas.Provider](ctx)
	if err != nil {
		return nil, err
	}

	// Lookup order: the up-to-date check first, then the shared cache.
	return New(loader, run, log, local, shared), nil
}
