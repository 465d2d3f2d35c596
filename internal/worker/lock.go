// Package worker keeps a single logical worker per state directory. Each CLI
// run that talks to Notion holds the lock for its lifetime so concurrent
// invocations serialize behind one request queue owner.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DefaultRetryDelay is how often Acquire polls a held lock.
const DefaultRetryDelay = 100 * time.Millisecond

// ErrBusy is returned by TryAcquire when another process holds the lock.
var ErrBusy = errors.New("another watchlog worker is running")

// Lock is a held worker lock.
type Lock struct {
	path string
	fl   *flock.Flock
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks the file. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release worker lock: %w", err)
	}
	return nil
}

// Acquire blocks until the lock at path is held or ctx is done.
func Acquire(ctx context.Context, path string) (*Lock, error) {
	fl, err := newFlock(path)
	if err != nil {
		return nil, err
	}
	ok, err := fl.TryLockContext(ctx, DefaultRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire worker lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return &Lock{path: path, fl: fl}, nil
}

// TryAcquire takes the lock without waiting.
func TryAcquire(path string) (*Lock, error) {
	fl, err := newFlock(path)
	if err != nil {
		return nil, err
	}
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire worker lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return &Lock{path: path, fl: fl}, nil
}

func newFlock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	return flock.New(path), nil
}
