package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/stow/internal/core/ports"
)

// NodeID is the unique identifier for the shared cache provider Graft node.
const NodeID graft.ID = "adapter.cache.shared"

var _ ports.CacheProvider = (*Provider)(nil)

// Provider opens the shared cache tier from project settings.
type Provider struct{}

// NewProvider creates a new Provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Open returns the shared store, or nil when caching or the shared tier is disabled.
// An empty cache directory setting selects .stow/cache under the project root.
func (p *Provider) Open(project *domain.Project, runID string) (ports.CacheStore, error) {
	settings := project.Settings
	if !settings.CacheEnabled || !settings.SharedCache {
		return nil, nil
	}

	dir := settings.CacheDir
	if dir == "" {
		dir = domain.DefaultCachePath(project.Root)
	}

	store, err := NewStore(dir, WithRunID(runID))
	if err != nil {
		return nil, err
	}
	return store, nil
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
