package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const DefaultLockDir = "/var/run/borgsched"

// FileLocker is the daemon singleton lock: one scheduling process per
// host. A lock file older than the TTL is treated as left behind by a
// crashed daemon and taken over.
type FileLocker struct {
	path string
	ttl  time.Duration

	mu   sync.Mutex
	held bool
}

func NewFileLocker(dir string, ttl time.Duration) *FileLocker {
	if dir == "" {
		dir = DefaultLockDir
	}
	return &FileLocker{path: filepath.Join(dir, "daemon.lock"), ttl: ttl}
}

func (l *FileLocker) Path() string { return l.path }

func (l *FileLocker) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return fmt.Errorf("daemon lock already held by this process")
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	err := l.create()
	if err == nil {
		l.held = true
		return nil
	}
	if !os.IsExist(err) {
		return fmt.Errorf("create lock file: %w", err)
	}

	info, statErr := os.Stat(l.path)
	if statErr != nil {
		return fmt.Errorf("lock file exists and stat failed: %w", statErr)
	}
	if l.ttl <= 0 || time.Since(info.ModTime()) < l.ttl {
		return fmt.Errorf("another daemon holds %s", l.path)
	}
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("remove stale lock: %w", err)
	}
	if err := l.create(); err != nil {
		return fmt.Errorf("acquire after stale takeover: %w", err)
	}
	l.held = true
	return nil
}

func (l *FileLocker) create() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0640)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		os.Remove(l.path)
		return err
	}
	return f.Sync()
}

func (l *FileLocker) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return nil
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release daemon lock: %w", err)
	}
	return nil
}

var _ Locker = (*FileLocker)(nil)
