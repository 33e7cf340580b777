package ports

import (
	"context"

	"go.trai.ch/stow/internal/core/domain"
)

// CacheStore is one tier of the output cache.
//
//go:generate mockgen -source=cache_store.go -destination=mocks/mock_cache_store.go -package=mocks
type CacheStore interface {
	// Source names the tier.
	Source() domain.CacheSource

	// Get returns the snapshot stored under key. It returns domain.ErrCacheMiss
	// when there is no usable entry and domain.ErrCacheCorrupt when the entry
	// exists but cannot be read. It never returns a partial snapshot.
	Get(ctx context.Context, key domain.CacheKey) (*domain.Snapshot, error)

	// Put snapshots every file under spec and stores it under key, replacing
	// any previous entry.
	Put(ctx context.Context, key domain.CacheKey, spec domain.OutputSpec) (*domain.Snapshot, error)

	// Restore materializes snap under destRoot. Blobs are verified before the
	// destination is touched.
	Restore(ctx context.Context, snap *domain.Snapshot, destRoot string) error

	// Close releases the tier's resources.
	Close() error
}

// CacheProvider opens a cache tier for a loaded project.
type CacheProvider interface {
	// Open returns the tier, or nil when the project disables it. Entries
	// written through the returned store are stamped with runID.
	Open(project *domain.Project, runID string) (CacheStore, error)
}
