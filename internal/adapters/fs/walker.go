// Package fs provides file system adapters for walking, resolving and fingerprinting files.
package fs

import (
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/stow/internal/core/domain"
)

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields every regular file under root in lexical order, skipping
// VCS metadata, the .stow state directory and ignored names.
// Yielded paths include root.
//
// Symlinks are followed and yielded under the link's own path. A directory
// link that points back at one of its ancestors is not descended again, and a
// dangling link is skipped. Entries that are neither regular files nor
// directories (FIFOs, sockets, devices) are skipped.
//
// A failure to read or stat an entry is yielded with an empty path and ends the
// walk.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		info, err := os.Stat(root)
		if err != nil {
			yield("", err)
			return
		}

		if !info.IsDir() {
			if info.Mode().IsRegular() {
				yield(root, nil)
			}
			return
		}

		w.walkDir(root, []fs.FileInfo{info}, ignores, yield)
	}
}

// walkDir reports whether the walk should continue.
func (w *Walker) walkDir(dir string, ancestors []fs.FileInfo, ignores []string, yield func(string, error) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		yield("", err)
		return false
	}

	for _, d := range entries {
		path := filepath.Join(dir, d.Name())

		mode := d.Type()
		var info fs.FileInfo
		if mode&fs.ModeSymlink != 0 {
			info, err = os.Stat(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				yield("", err)
				return false
			}
			mode = info.Mode().Type()
		}

		isDir := mode.IsDir()
		if w.shouldSkip(d.Name(), isDir, ignores) {
			continue
		}

		switch {
		case isDir:
			if info == nil {
				if info, err = d.Info(); err != nil {
					yield("", err)
					return false
				}
			}
			if slices.ContainsFunc(ancestors, func(a fs.FileInfo) bool { return os.SameFile(a, info) }) {
				continue
			}
			if !w.walkDir(path, append(ancestors, info), ignores, yield) {
				return false
			}
		case mode.IsRegular():
			if !yield(path, nil) {
				return false
			}
		}
	}

	return true
}

// shouldSkip reports whether the entry named name is excluded.
func (w *Walker) shouldSkip(name string, isDir bool, ignores []string) bool {
	if isDir {
		switch name {
		case ".git", ".jj", domain.StowDirName:
			return true
		}
	}

	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			return true
		}
	}

	return false
}
