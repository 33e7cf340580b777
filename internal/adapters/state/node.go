package state

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/stow/internal/core/ports"
)

// NodeID is the unique identifier for the local state provider Graft node.
const NodeID graft.ID = "adapter.cache.local"

var _ ports.CacheProvider = (*Provider)(nil)

// Provider opens the local up-to-date tier for a project.
type Provider struct{}

// NewProvider creates a new Provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Open returns the project's state store, or nil when caching is disabled.
func (p *Provider) Open(project *domain.Project, runID string) (ports.CacheStore, error) {
	if !project.Settings.CacheEnabled {
		return nil, nil
	}
	return NewStore(project.Root, domain.DefaultStatePath(project.Root), runID), nil
}

func init() {
	graft.Register(graft.Node[*Provider]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Provider, error) {
			return NewProvider(), nil
		},
	})
}
