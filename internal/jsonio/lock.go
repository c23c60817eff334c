package jsonio

import (
	"fmt"
	"os"
	"sync"
)

// FileLock is an exclusive advisory lock on "<path>.lock".
type FileLock struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// LockPath returns the lock file guarding path.
func LockPath(path string) string {
	return path + ".lock"
}

// Lock blocks until the exclusive lock for path is held. The lock is shared
// across processes; within one process callers must not nest Lock on the
// same path.
func Lock(path string) (*FileLock, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	lp := LockPath(path)
	f, err := os.OpenFile(lp, os.O_RDWR|os.O_CREATE, 0640)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", lp, err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquiring lock %s: %w", lp, err)
	}

	return &FileLock{f: f, path: lp}, nil
}

// Unlock releases the lock. Calling it more than once is a no-op.
func (l *FileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}

	err := unlockFile(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil

	if err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.path, err)
	}
	return nil
}
