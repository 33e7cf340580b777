// Package cas implements the shared content-addressed output cache.
//
// Layout under the cache directory:
//
//	blobs/<sha[0:2]>/<sha256>     immutable file contents
//	entries/<fp[0:2]>/<fp>.json   snapshot manifests
//	tmp/                          in-flight writes
//
// Blobs and manifests are written to a temporary file and renamed into place,
// so concurrent readers never observe a partial write.
package cas

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	stowfs "go.trai.ch/stow/internal/adapters/fs"
	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/stow/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.CacheStore = (*Store)(nil)

// Store is a content-addressed cache directory shared between checkouts.
type Store struct {
	dir   string
	runID string
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRunID stamps every manifest written by the store.
func WithRunID(id string) Option {
	return func(s *Store) {
		s.runID = id
	}
}

// WithClock overrides the manifest creation time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore opens (creating if needed) the cache directory at dir.
func NewStore(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir: filepath.Clean(dir),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, sub := range []string{domain.BlobsDirName, domain.EntriesDirName, domain.TmpDirName} {
		if err := os.MkdirAll(filepath.Join(s.dir, sub), domain.DirPerm); err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "dir", s.dir)
		}
	}

	return s, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Source names the tier.
func (s *Store) Source() domain.CacheSource {
	return domain.SourceShared
}

// Get reads the manifest stored under key.Fingerprint and checks that every
// blob it references is present with the recorded size.
func (s *Store) Get(ctx context.Context, key domain.CacheKey) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.entryPath(key.Fingerprint)
	data, err := os.ReadFile(path) //nolint:gosec // Path is derived from the cache dir and a hex fingerprint
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrCacheMiss
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "unreadable manifest"), "path", path)
	}
	if snap.Version != domain.SnapshotVersion || snap.Fingerprint != key.Fingerprint {
		return nil, zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "manifest does not match key"), "path", path)
	}

	for _, f := range snap.Files {
		if !validDigest(f.Digest) {
			return nil, zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "invalid blob digest"), "file", f.Path)
		}
		info, err := os.Stat(s.blobPath(f.Digest))
		if err != nil || info.Size() != f.Size {
			return nil, zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "blob missing"), "file", f.Path)
		}
	}

	snap.Source = domain.SourceShared
	return &snap, nil
}

// Put snapshots the declared outputs of spec and stores the manifest under
// key.Fingerprint, replacing any previous manifest.
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
		Source:      domain.SourceShared,
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		digest, size, err := s.putBlob(f.Abs)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "file", f.Path)
		}

		snap.Files = append(snap.Files, domain.SnapshotFile{
			Path:   f.Path,
			Digest: digest,
			Size:   size,
			Mode:   f.Mode,
		})
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}

	path := s.entryPath(key.Fingerprint)
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := writeAtomic(s.tmpDir(), path, bytes.NewReader(data), domain.FilePerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}

	return snap, nil
}

// Restore verifies every blob of snap and then replaces the declared outputs
// under destRoot with the snapshot contents. A verification failure is
// domain.ErrCacheCorrupt and leaves destRoot untouched.
func (s *Store) Restore(ctx context.Context, snap *domain.Snapshot, destRoot string) error {
	targets := make([]string, len(snap.Files))
	for i, f := range snap.Files {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := stowfs.LocalPath(destRoot, f.Path)
		if err != nil {
			return err
		}
		targets[i] = target

		if err := s.verifyBlob(f); err != nil {
			return err
		}
	}

	for _, out := range snap.Outputs {
		path, err := stowfs.ContainedPath(destRoot, out.Path)
		if err != nil {
			return zerr.Wrap(domain.ErrCacheCorrupt, err.Error())
		}
		if err := os.RemoveAll(path); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrRestoreFailed.Error()), "path", out.Path)
		}
		if out.Dir {
			if err := os.MkdirAll(path, domain.DirPerm); err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrRestoreFailed.Error()), "path", out.Path)
			}
		}
	}

	for i, f := range snap.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.restoreFile(f, targets[i]); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrRestoreFailed.Error()), "file", f.Path)
		}
	}

	return nil
}

// Close releases nothing; the store holds no open handles.
func (s *Store) Close() error {
	return nil
}

func (s *Store) putBlob(src string) (string, int64, error) {
	file, err := os.Open(src) //nolint:gosec // Path comes from the collected outputs
	if err != nil {
		return "", 0, err
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	tmp, err := os.CreateTemp(s.tmpDir(), "blob.*")
	if err != nil {
		return "", 0, err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), file)
	if err != nil {
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		return "", 0, err
	}

	digest := hex.EncodeToString(h.Sum(nil))
	blob := s.blobPath(digest)

	// Blobs are immutable: an existing blob with the same digest is reused.
	if info, err := os.Stat(blob); err == nil && info.Size() == size {
		return digest, size, nil
	}

	if err := os.MkdirAll(filepath.Dir(blob), domain.DirPerm); err != nil {
		return "", 0, err
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmpName, blob); err != nil {
		return "", 0, err
	}

	return digest, size, nil
}

func (s *Store) verifyBlob(f domain.SnapshotFile) error {
	if !validDigest(f.Digest) {
		return zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "invalid blob digest"), "file", f.Path)
	}
	path := s.blobPath(f.Digest)
	file, err := os.Open(path) //nolint:gosec // Path is derived from the cache dir and a hex digest
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "blob missing"), "file", f.Path)
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "blob unreadable"), "file", f.Path)
	}
	if hex.EncodeToString(h.Sum(nil)) != f.Digest {
		return zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "blob digest mismatch"), "file", f.Path)
	}

	return nil
}

func (s *Store) restoreFile(f domain.SnapshotFile, target string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	blob, err := os.Open(s.blobPath(f.Digest)) //nolint:gosec // Digest was verified before restore
	if err != nil {
		return err
	}
	defer blob.Close() //nolint:errcheck // Best effort close in defer

	mode := f.Mode.Perm()
	if mode == 0 {
		mode = domain.FilePerm
	}

	return writeAtomic(dir, target, blob, mode)
}

func (s *Store) tmpDir() string {
	return filepath.Join(s.dir, domain.TmpDirName)
}

func (s *Store) blobPath(digest string) string {
	return filepath.Join(s.dir, domain.BlobsDirName, shard(digest), digest)
}

func (s *Store) entryPath(fp domain.Fingerprint) string {
	return filepath.Join(s.dir, domain.EntriesDirName, shard(fp.String()), fp.String()+".json")
}

func validDigest(d string) bool {
	if len(d) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(d)
	return err == nil
}

func shard(s string) string {
	if len(s) < 2 {
		return "_"
	}
	return s[:2]
}
