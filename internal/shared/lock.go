package shared

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// TreeLock guards a working tree so only one pipeline run touches it at a time.
type TreeLock struct {
	path string
	lock *flock.Flock
}

// NewTreeLock returns a lock backed by a file inside dir.
//
// When dir contains a .git directory the lock file lives there so it never shows up as a working-tree change.
// Otherwise it sits next to dir, leaving dir free for a fresh clone.
func NewTreeLock(dir string) *TreeLock {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	path := filepath.Join(filepath.Dir(dir), "."+filepath.Base(dir)+".plstat.lock")
	if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
		path = filepath.Join(dir, ".git", "plstat.lock")
	}
	return &TreeLock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *TreeLock) Path() string { return l.path }

// TryLock acquires the lock without blocking and returns [ErrLocked] when it is held elsewhere.
func (l *TreeLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, l.path)
	}
	return nil
}

// Unlock releases the lock.
func (l *TreeLock) Unlock() error {
	return l.lock.Unlock()
}
