package cas

import (
	"io"
	"os"
	"path/filepath"
)

// writeAtomic streams r into a temporary file in dir and renames it to path.
// Readers of path observe either the previous file or the complete new one.
func writeAtomic(dir, path string, r io.Reader, perm os.FileMode) error {
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
