package ports

import "go.trai.ch/stow/internal/core/domain"

// OutputVerifier prepares and checks the declared outputs of a task.
//
//go:generate mockgen -source=output_verifier.go -destination=mocks/mock_output_verifier.go -package=mocks
type OutputVerifier interface {
	// CleanOutputs removes every declared output before the command runs.
	// It fails with domain.ErrOutputPathOutsideRoot for a path escaping the root.
	CleanOutputs(spec domain.OutputSpec) error

	// VerifyOutputs fails with domain.ErrOutputMissing when a declared output
	// was not produced.
	VerifyOutputs(spec domain.OutputSpec) error
}
