package fs

import (
	"path/filepath"
	"sort"

	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/zerr"
)

// Resolver expands declared input paths, which may be glob patterns.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the sorted absolute paths matched by pattern. Relative
// patterns are joined to root. A pattern that matches nothing is
// domain.ErrInputMissing.
func (r *Resolver) Resolve(root, pattern string) ([]string, error) {
	path := pattern
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	matches, err := filepath.Glob(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "path", pattern)
	}

	if len(matches) == 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrInputMissing, "declared input does not exist"), "path", pattern)
	}

	sort.Strings(matches)
	return matches, nil
}
