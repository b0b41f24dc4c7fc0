package lock

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestFileLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("acquire writes pid file", func(t *testing.T) {
		l := NewFileLocker(t.TempDir(), time.Hour)
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		data, err := os.ReadFile(l.Path())
		if err != nil {
			t.Fatalf("lock file missing: %v", err)
		}
		if len(data) == 0 {
			t.Error("lock file empty, want pid")
		}
		if err := l.Release(ctx); err != nil {
			t.Fatalf("Release: %v", err)
		}
		if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
			t.Error("lock file survives release")
		}
	})

	t.Run("second daemon refused", func(t *testing.T) {
		dir := t.TempDir()
		first := NewFileLocker(dir, time.Hour)
		if err := first.Acquire(ctx); err != nil {
			t.Fatal(err)
		}
		defer first.Release(ctx)

		second := NewFileLocker(dir, time.Hour)
		if err := second.Acquire(ctx); err == nil {
			t.Fatal("two daemons acquired the same lock")
		}
	})

	t.Run("stale lock taken over", func(t *testing.T) {
		dir := t.TempDir()
		stale := NewFileLocker(dir, time.Hour)
		if err := stale.Acquire(ctx); err != nil {
			t.Fatal(err)
		}
		// Age the lock file past the TTL.
		old := time.Now().Add(-2 * time.Hour)
		if err := os.Chtimes(stale.Path(), old, old); err != nil {
			t.Fatal(err)
		}

		next := NewFileLocker(dir, time.Hour)
		if err := next.Acquire(ctx); err != nil {
			t.Fatalf("stale lock not taken over: %v", err)
		}
		if err := next.Release(ctx); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("fresh lock not taken over", func(t *testing.T) {
		dir := t.TempDir()
		holder := NewFileLocker(dir, time.Hour)
		if err := holder.Acquire(ctx); err != nil {
			t.Fatal(err)
		}
		defer holder.Release(ctx)

		next := NewFileLocker(dir, time.Hour)
		if err := next.Acquire(ctx); err == nil {
			t.Fatal("fresh lock stolen")
		}
	})

	t.Run("reacquire by same locker refused while held", func(t *testing.T) {
		l := NewFileLocker(t.TempDir(), time.Hour)
		if err := l.Acquire(ctx); err != nil {
			t.Fatal(err)
		}
		defer l.Release(ctx)
		if err := l.Acquire(ctx); err == nil {
			t.Fatal("double acquire succeeded")
		}
	})

	t.Run("release without acquire is a no-op", func(t *testing.T) {
		l := NewFileLocker(t.TempDir(), time.Hour)
		if err := l.Release(ctx); err != nil {
			t.Fatalf("Release: %v", err)
		}
	})
}
