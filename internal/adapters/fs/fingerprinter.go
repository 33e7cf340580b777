package fs

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/stow/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.Fingerprinter = (*Fingerprinter)(nil)

// Section tags keep the digest of one section from colliding with another.
const (
	sectionInput   = "input"
	sectionFile    = "file"
	sectionCommand = "cmd"
	sectionOutputs = "outputs"
	sectionEnv     = "env"
	sectionDir     = "dir"
	sectionInputs  = "inputs"
)

// Fingerprinter computes xxhash fingerprints of declared inputs and task definitions.
type Fingerprinter struct {
	walker   *Walker
	resolver *Resolver
	limit    int
}

// NewFingerprinter creates a new Fingerprinter.
func NewFingerprinter(walker *Walker, resolver *Resolver) *Fingerprinter {
	return &Fingerprinter{
		walker:   walker,
		resolver: resolver,
		limit:    runtime.NumCPU(),
	}
}

// inputFile is a file contributing to an input fingerprint.
type inputFile struct {
	identity string
	path     string
	digest   uint64
}

// inputGroup is one declared input with the files it expanded to.
type inputGroup struct {
	identity    string
	sensitivity domain.PathSensitivity
	files       []*inputFile
}

// ComputeFileHash computes the xxhash of a file's content.
func (f *Fingerprinter) ComputeFileHash(path string) (uint64, error) {
	file, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	return hasher.Sum64(), nil
}

// ComputeInputFingerprint digests the declared identity, sensitivity, path
// identity and content of every member of spec, in declared order.
func (f *Fingerprinter) ComputeInputFingerprint(ctx context.Context, spec domain.InputSpec) (domain.Fingerprint, error) {
	root, err := filepath.Abs(spec.Root)
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrFailedToGetRoot.Error())
	}

	groups := make([]inputGroup, 0, len(spec.Paths))
	var files []*inputFile

	for _, in := range spec.Paths {
		group, err := f.expand(root, in)
		if err != nil {
			return "", err
		}
		groups = append(groups, group)
		files = append(files, group.files...)
	}

	if err := f.digestFiles(ctx, files); err != nil {
		return "", err
	}

	hasher := xxhash.New()
	for _, group := range groups {
		writeField(hasher, sectionInput)
		writeField(hasher, group.identity)
		writeField(hasher, string(group.sensitivity))

		for _, file := range group.files {
			writeField(hasher, sectionFile)
			writeField(hasher, file.identity)
			_ = binary.Write(hasher, binary.LittleEndian, file.digest)
		}
	}

	return sum(hasher), nil
}

// ComputeTaskFingerprint digests the task definition followed by its input fingerprint.
func (f *Fingerprinter) ComputeTaskFingerprint(ctx context.Context, task *domain.Task) (domain.Fingerprint, error) {
	inputs, err := f.ComputeInputFingerprint(ctx, task.InputSpec())
	if err != nil {
		return "", err
	}

	hasher := xxhash.New()

	writeField(hasher, sectionCommand)
	for _, arg := range task.Command {
		writeField(hasher, arg)
	}

	outputs := task.OutputSpec().Paths
	cleaned := make([]string, len(outputs))
	for i, out := range outputs {
		cleaned[i] = filepath.ToSlash(filepath.Clean(out))
	}
	sort.Strings(cleaned)
	writeField(hasher, sectionOutputs)
	for _, out := range cleaned {
		writeField(hasher, out)
	}

	keys := make([]string, 0, len(task.Environment))
	for k := range task.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeField(hasher, sectionEnv)
	for _, k := range keys {
		writeField(hasher, k+"="+task.Environment[k])
	}

	writeField(hasher, sectionDir)
	writeField(hasher, task.RelativeDir())

	writeField(hasher, sectionInputs)
	writeField(hasher, inputs.String())

	return sum(hasher), nil
}

// expand resolves one declared input into the files it covers.
func (f *Fingerprinter) expand(root string, in domain.InputPath) (inputGroup, error) {
	declared := in.Path.String()
	sensitivity := in.Sensitivity
	if sensitivity == "" {
		sensitivity = domain.SensitivityRelative
	}

	anchor := declared
	if !filepath.IsAbs(anchor) {
		anchor = filepath.Join(root, anchor)
	}

	group := inputGroup{
		identity:    identity(root, filepath.Dir(anchor), anchor, sensitivity),
		sensitivity: sensitivity,
	}

	matches, err := f.resolver.Resolve(root, declared)
	if err != nil {
		return inputGroup{}, err
	}

	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			if os.IsNotExist(err) {
				return inputGroup{}, zerr.With(zerr.Wrap(domain.ErrInputMissing, "declared input does not exist"), "path", declared)
			}
			return inputGroup{}, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", match)
		}

		// Identities inside a matched directory are anchored at its parent so
		// that inputs outside the root stay location-independent.
		base := filepath.Dir(match)
		if !info.IsDir() {
			group.files = append(group.files, &inputFile{
				identity: identity(root, base, match, sensitivity),
				path:     match,
			})
			continue
		}

		for path, err := range f.walker.WalkFiles(match, nil) {
			if err != nil {
				return inputGroup{}, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", declared)
			}
			group.files = append(group.files, &inputFile{
				identity: identity(root, base, path, sensitivity),
				path:     path,
			})
		}
	}

	return group, nil
}

// digestFiles hashes file contents concurrently. Results are stored on each
// entry so the combination order stays that of the declaration.
func (f *Fingerprinter) digestFiles(ctx context.Context, files []*inputFile) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.limit)

	for _, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			digest, err := f.ComputeFileHash(file.path)
			if err != nil {
				return err
			}
			file.digest = digest
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return zerr.Wrap(err, domain.ErrInputHashComputationFailed.Error())
	}
	return nil
}

// identity returns the path identity of abs. In relative mode it is the
// slash path relative to root, or relative to base when abs lies outside root.
func identity(root, base, abs string, sensitivity domain.PathSensitivity) string {
	if sensitivity == domain.SensitivityAbsolute {
		return filepath.ToSlash(filepath.Clean(abs))
	}

	if rel, err := filepath.Rel(root, abs); err == nil && !escapes(rel) {
		return filepath.ToSlash(rel)
	}

	if rel, err := filepath.Rel(base, abs); err == nil && !escapes(rel) {
		return filepath.ToSlash(rel)
	}

	return filepath.Base(abs)
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func writeField(w io.Writer, s string) {
	_, _ = io.WriteString(w, s)
	_, _ = w.Write([]byte{0})
}

func sum(h *xxhash.Digest) domain.Fingerprint {
	return domain.Fingerprint(fmt.Sprintf("%016x", h.Sum64()))
}
