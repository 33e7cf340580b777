package fs

import (
	"os"

	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/stow/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.OutputVerifier = (*Verifier)(nil)

// Verifier checks declared outputs after a command has run.
type Verifier struct{}

// NewVerifier creates a new Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyOutputs returns domain.ErrOutputMissing for the first declared output
// that does not exist under the spec root.
func (v *Verifier) VerifyOutputs(spec domain.OutputSpec) error {
	for _, output := range spec.Paths {
		path, err := ContainedPath(spec.Root, output)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return zerr.With(zerr.Wrap(domain.ErrOutputMissing, "declared output was not produced"), "path", output)
			}
			return zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", output)
		}
	}
	return nil
}

// CleanOutputs removes every declared output so stale artifacts cannot leak into
// a new snapshot.
func (v *Verifier) CleanOutputs(spec domain.OutputSpec) error {
	for _, output := range spec.Paths {
		path, err := ContainedPath(spec.Root, output)
		if err != nil {
			return err
		}
		// Remove the validated absolute path only.
		if err := os.RemoveAll(path); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrFailedToCleanOutput.Error()), "path", output)
		}
	}
	return nil
}
