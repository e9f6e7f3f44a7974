package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTreeLock(t *testing.T) {
	t.Run("second lock is refused", func(t *testing.T) {
		dir := t.TempDir()
		first := NewTreeLock(dir)
		second := NewTreeLock(dir)

		if err := first.TryLock(); err != nil {
			t.Fatalf("first lock failed: %v", err)
		}
		defer first.Unlock()

		if err := second.TryLock(); !errors.Is(err, ErrLocked) {
			t.Errorf("expected ErrLocked, got %v", err)
		}

		if err := first.Unlock(); err != nil {
			t.Fatalf("unlock failed: %v", err)
		}
		if err := second.TryLock(); err != nil {
			t.Errorf("lock should be free after unlock: %v", err)
		}
		second.Unlock()
	})

	t.Run("lock file lives in .git when present", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, ".git"), 0755); err != nil {
			t.Fatal(err)
		}
		lock := NewTreeLock(dir)
		if lock.Path() != filepath.Join(dir, ".git", "plstat.lock") {
			t.Errorf("unexpected lock path %s", lock.Path())
		}
	})

	t.Run("lock file sits beside a tree without .git", func(t *testing.T) {
		parent := t.TempDir()
		dir := filepath.Join(parent, "repo")
		lock := NewTreeLock(dir)
		if lock.Path() != filepath.Join(parent, ".repo.plstat.lock") {
			t.Errorf("unexpected lock path %s", lock.Path())
		}
		if err := lock.TryLock(); err != nil {
			t.Fatalf("lock failed: %v", err)
		}
		defer lock.Unlock()
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("expected %s to stay absent, got %v", dir, err)
		}
	})
}
