package db

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
)

// LockFileSuffix is appended to the store path to name the lock artifact.
const LockFileSuffix = "-lock"

// FileMode is the permission used for newly created backing files.
const FileMode os.FileMode = 0o644

// LockPath returns the lock artifact path for a store at path.
func LockPath(path string) string {
	return path + LockFileSuffix
}

// createFile creates an empty file at path unless one already exists.
// O_EXCL makes creation atomic; losing the race to another creator is fine.
func createFile(path string, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("db: stat %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("db: create %s: %w", path, err)
	}
	return f.Close()
}

// writeLockFile records the owning process in the lock artifact.
func writeLockFile(path string, perm os.FileMode) error {
	lp := LockPath(path)
	if err := os.WriteFile(lp, []byte(strconv.Itoa(os.Getpid())+"\n"), perm); err != nil {
		return fmt.Errorf("db: write lock file %s: %w", lp, err)
	}
	return nil
}

// removeLockFile deletes the lock artifact if present. A missing artifact
// is not an error.
func removeLockFile(path string) error {
	err := os.Remove(LockPath(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
