package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"retitle/internal/config"
)

// Lock holds an exclusive file lock beside the cache database so two runs
// cannot interleave decision writes.
type Lock struct {
	path string
	fl   *flock.Flock
}

// AcquireLock takes the cache lock, failing immediately when another retitle
// process holds it.
func AcquireLock(cfg *config.Config) (*Lock, error) {
	lockPath := cfg.Paths.CachePath + ".lock"
	if dir := filepath.Dir(lockPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
	}

	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another retitle process is using the decision cache (lock %s)", lockPath)
	}
	return &Lock{path: lockPath, fl: fl}, nil
}

// Release gives up the lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}
