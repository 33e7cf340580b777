package domain

import (
	"io/fs"
	"time"
)

// SnapshotVersion is the current manifest format version.
const SnapshotVersion = 1

// CacheSource identifies the cache tier that produced a snapshot.
type CacheSource string

const (
	// SourceLocal is the task's own last successful run (the up-to-date check).
	SourceLocal CacheSource = "local"
	// SourceShared is the content-addressed build cache.
	SourceShared CacheSource = "shared"
)

// SnapshotOutput records a declared output and whether it was a directory.
type SnapshotOutput struct {
	Path string `json:"path"`
	Dir  bool   `json:"dir,omitempty"`
}

// SnapshotFile records a single file captured from the declared outputs.
type SnapshotFile struct {
	// Path is slash-separated and relative to the output root.
	Path   string      `json:"path"`
	Digest string      `json:"sha256"`
	Size   int64       `json:"size"`
	Mode   fs.FileMode `json:"mode"`
}

// Snapshot is a restorable capture of a task's declared outputs, keyed by fingerprint.
type Snapshot struct {
	Version     int              `json:"version"`
	Task        string           `json:"task"`
	Fingerprint Fingerprint      `json:"fingerprint"`
	Outputs     []SnapshotOutput `json:"outputs"`
	Files       []SnapshotFile   `json:"files"`
	RunID       string           `json:"run_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`

	// Source is set by the store that returned the snapshot and is not persisted.
	Source CacheSource `json:"-"`
}

// TotalSize returns the sum of the captured file sizes.
func (s *Snapshot) TotalSize() int64 {
	var total int64
	for _, f := range s.Files {
		total += f.Size
	}
	return total
}
