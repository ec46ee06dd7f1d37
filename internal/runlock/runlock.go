// Package runlock provides coarse mutual exclusion between archiver runs.
//
// It uses an OS advisory lock rather than a bare marker file, so a lock held
// by a crashed process is released automatically and never blocks future
// runs.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"retreivr/internal/errs"
)

// Lock guards a single archiver run.
type Lock struct {
	flock *flock.Flock
}

// New prepares a lock at the given path. The lock is not acquired yet.
func New(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock dir: %w", err)
	}

	return &Lock{flock: flock.New(path)}, nil
}

// Acquire takes the lock without blocking. A lock held by another live
// process returns errs.ErrLockHeld.
func (l *Lock) Acquire() error {
	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}

	if !ok {
		return errs.ErrLockHeld
	}

	return nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}

	return nil
}
