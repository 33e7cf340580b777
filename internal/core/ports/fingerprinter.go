package ports

import (
	"context"

	"go.trai.ch/stow/internal/core/domain"
)

// Fingerprinter digests declared inputs into a domain.Fingerprint.
//
//go:generate mockgen -source=fingerprinter.go -destination=mocks/mock_fingerprinter.go -package=mocks
type Fingerprinter interface {
	// ComputeInputFingerprint digests the content and path identity of every
	// member of spec. It fails with domain.ErrInputMissing when a declared path
	// does not resolve.
	ComputeInputFingerprint(ctx context.Context, spec domain.InputSpec) (domain.Fingerprint, error)

	// ComputeTaskFingerprint digests the task definition together with the
	// fingerprint of its inputs. This is the key the cache tiers are queried with.
	ComputeTaskFingerprint(ctx context.Context, task *domain.Task) (domain.Fingerprint, error)
}
