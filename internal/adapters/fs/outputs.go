package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/zerr"
)

// OutputFile is a regular file found under a declared output.
type OutputFile struct {
	// Path is slash-separated and relative to the output root.
	Path string
	Abs  string
	Size int64
	Mode iofs.FileMode
}

// ContainedPath resolves p against root and rejects results that are the root
// itself or lie outside it.
func ContainedPath(root, p string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrFailedToGetRoot.Error())
	}

	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(rootAbs, abs)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil || rel == "." || escapes(rel) {
		return "", zerr.With(zerr.Wrap(domain.ErrOutputPathOutsideRoot, "invalid output path"), "path", p)
	}

	return abs, nil
}

// CollectOutputs lists the declared outputs of spec and every file beneath them.
// Files are sorted by path and de-duplicated across overlapping outputs. A
// declared output that does not exist is domain.ErrOutputMissing.
func CollectOutputs(spec domain.OutputSpec) ([]domain.SnapshotOutput, []OutputFile, error) {
	root, err := filepath.Abs(spec.Root)
	if err != nil {
		return nil, nil, zerr.Wrap(err, domain.ErrFailedToGetRoot.Error())
	}

	walker := NewWalker()
	outputs := make([]domain.SnapshotOutput, 0, len(spec.Paths))
	seen := make(map[string]bool)
	var files []OutputFile

	add := func(abs string) error {
		info, err := os.Stat(abs)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", abs)
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", abs)
		}
		rel = filepath.ToSlash(rel)
		if seen[rel] {
			return nil
		}
		seen[rel] = true
		files = append(files, OutputFile{
			Path: rel,
			Abs:  abs,
			Size: info.Size(),
			Mode: info.Mode().Perm(),
		})
		return nil
	}

	for _, declared := range spec.Paths {
		abs, err := ContainedPath(root, declared)
		if err != nil {
			return nil, nil, err
		}

		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil, zerr.With(zerr.Wrap(domain.ErrOutputMissing, "declared output was not produced"), "path", declared)
			}
			return nil, nil, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", declared)
		}

		outputs = append(outputs, domain.SnapshotOutput{
			Path: filepath.ToSlash(filepath.Clean(declared)),
			Dir:  info.IsDir(),
		})

		if !info.IsDir() {
			if err := add(abs); err != nil {
				return nil, nil, err
			}
			continue
		}

		for path, err := range walker.WalkFiles(abs, nil) {
			if err != nil {
				return nil, nil, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", declared)
			}
			if err := add(path); err != nil {
				return nil, nil, err
			}
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return outputs, files, nil
}

// HashFile returns the hex sha256 digest of a file's content.
func HashFile(path string) (string, error) {
	file, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// LocalPath converts a slash-separated snapshot path into a path under root,
// rejecting paths that would escape it.
func LocalPath(root, rel string) (string, error) {
	if rel == "" || strings.HasPrefix(rel, "/") {
		return "", zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "invalid path in snapshot"), "path", rel)
	}
	p := filepath.Join(root, filepath.FromSlash(rel))
	r, err := filepath.Rel(root, p)
	if err != nil || r == "." || escapes(r) {
		return "", zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "invalid path in snapshot"), "path", rel)
	}
	return p, nil
}
