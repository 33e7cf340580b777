// Package state implements the local up-to-date check as a single-entry-per-task
// cache tier backed by bbolt.
//
// The database lives at .stow/state.db. Bucket "tasks" maps a task name to the
// JSON snapshot of its last successful run. Outputs are never copied: the
// snapshot records digests of the files left in place, and a lookup hits only
// while those files are still intact.
//
// The database is opened for each transaction and closed right after, so its
// file lock is never held while a task's command runs. Lookups take a shared
// read-only lock.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	stowfs "go.trai.ch/stow/internal/adapters/fs"
	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/stow/internal/core/ports"
	"go.trai.ch/zerr"
)

const bucketName = "tasks"

// openTimeout bounds the wait for another process holding the database lock.
const openTimeout = time.Second

var _ ports.CacheStore = (*Store)(nil)

// Store is the local tier for one project root.
type Store struct {
	root  string
	path  string
	runID string
	now   func() time.Time

	// mu serializes transactions of concurrent tasks within one invocation.
	mu sync.Mutex
}

// NewStore creates a store for the project at root whose database lives at path.
func NewStore(root, path, runID string) *Store {
	return &Store{
		root:  filepath.Clean(root),
		path:  filepath.Clean(path),
		runID: runID,
		now:   time.Now,
	}
}

// Source names the tier.
func (s *Store) Source() domain.CacheSource {
	return domain.SourceLocal
}

// Get returns the task's last snapshot when its fingerprint equals
// key.Fingerprint and the outputs on disk still match it.
func (s *Store) Get(ctx context.Context, key domain.CacheKey) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrCacheMiss
	}

	var data []byte
	err := s.withDB(true, func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key.Task)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	if data == nil {
		return nil, domain.ErrCacheMiss
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "unreadable state entry"), "task", key.Task)
	}

	if snap.Version != domain.SnapshotVersion || snap.Fingerprint != key.Fingerprint {
		return nil, domain.ErrCacheMiss
	}

	if !s.matchesDisk(&snap) {
		return nil, domain.ErrCacheMiss
	}

	snap.Source = domain.SourceLocal
	return &snap, nil
}

// Put records the outputs currently on disk as the task's last successful run.
func (s *Store) Put(ctx context.Context, key domain.CacheKey, spec domain.OutputSpec) (*domain.Snapshot, error) {
	outputs, files, err := stowfs.CollectOutputs(spec)
	if err != nil {
		return nil, err
	}

	snap := &domain.Snapshot{
		Version:     domain.SnapshotVersion,
		Task:        key.Task,
		Fingerprint: key.Fingerprint,
		Outputs:     outputs,
		Files:       make([]domain.SnapshotFile, 0, len(files)),
		RunID:       s.runID,
		CreatedAt:   s.now().UTC(),
		Source:      domain.SourceLocal,
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		digest, err := stowfs.HashFile(f.Abs)
		if err != nil {
			return nil, err
		}
		snap.Files = append(snap.Files, domain.SnapshotFile{
			Path:   f.Path,
			Digest: digest,
			Size:   f.Size,
			Mode:   f.Mode,
		})
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}

	err = s.withDB(false, func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		return b.Put([]byte(key.Task), data)
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "task", key.Task)
	}

	return snap, nil
}

// Restore re-checks that the recorded outputs are still present under destRoot.
// The files are already in place, so nothing is written.
func (s *Store) Restore(ctx context.Context, snap *domain.Snapshot, destRoot string) error {
	for _, f := range snap.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, err := stowfs.LocalPath(destRoot, f.Path)
		if err != nil {
			return err
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() != f.Size {
			return zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "output changed since last run"), "file", f.Path)
		}
	}
	return nil
}

// Close is a no-op; the database is only open for the duration of a transaction.
func (s *Store) Close() error {
	return nil
}

// withDB opens the database, runs fn in one transaction and closes it again.
func (s *Store) withDB(readOnly bool, fn func(*bbolt.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(s.path), domain.DirPerm); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "path", s.path)
		}
	}

	db, err := bbolt.Open(s.path, domain.PrivateFilePerm, &bbolt.Options{
		Timeout:  openTimeout,
		ReadOnly: readOnly,
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "path", s.path)
	}

	if readOnly {
		err = db.View(fn)
	} else {
		err = db.Update(fn)
	}

	if cerr := db.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return err
}

// matchesDisk reports whether the declared outputs on disk hold exactly the
// recorded files with the recorded content.
func (s *Store) matchesDisk(snap *domain.Snapshot) bool {
	spec := domain.OutputSpec{Root: s.root, Paths: make([]string, len(snap.Outputs))}
	for i, out := range snap.Outputs {
		spec.Paths[i] = filepath.FromSlash(out.Path)
	}

	_, files, err := stowfs.CollectOutputs(spec)
	if err != nil || len(files) != len(snap.Files) {
		return false
	}

	for i, f := range files {
		want := snap.Files[i]
		if f.Path != want.Path || f.Size != want.Size {
			return false
		}
		digest, err := stowfs.HashFile(f.Abs)
		if err != nil || digest != want.Digest {
			return false
		}
	}

	return true
}
