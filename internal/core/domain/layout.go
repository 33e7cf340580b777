package domain

import "path/filepath"

const (
	// StowDirName is the name of the per-project state directory.
	StowDirName = ".stow"

	// CacheDirName is the name of the default shared cache directory inside StowDirName.
	CacheDirName = "cache"

	// StateDBName is the name of the local up-to-date database inside StowDirName.
	StateDBName = "state.db"

	// BlobsDirName holds content-addressed file contents inside a cache directory.
	BlobsDirName = "blobs"

	// EntriesDirName holds fingerprint manifests inside a cache directory.
	EntriesDirName = "entries"

	// TmpDirName holds in-flight writes inside a cache directory.
	TmpDirName = "tmp"

	// ProjectFileName is the name of the project configuration file.
	ProjectFileName = "stow.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultStowPath returns the state directory for a project root.
func DefaultStowPath(root string) string {
	return filepath.Join(root, StowDirName)
}

// DefaultCachePath returns the default shared cache directory for a project root.
// It joins .stow and cache.
func DefaultCachePath(root string) string {
	return filepath.Join(root, StowDirName, CacheDirName)
}

// DefaultStatePath returns the path of the local up-to-date database for a project root.
// It joins .stow and state.db.
func DefaultStatePath(root string) string {
	return filepath.Join(root, StowDirName, StateDBName)
}
