package reaper

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"adscribe/internal/logging"
)

func mkdirAged(t *testing.T, root, name string, age time.Duration, now time.Time) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	stamp := now.Add(-age)
	if err := os.Chtimes(dir, stamp, stamp); err != nil {
		t.Fatalf("set time on %s: %v", name, err)
	}
	return dir
}

func TestSweepInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := Sweep(context.Background(), dir, time.Hour, time.Now(), logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestSweepRemovesOnlyExpiredDirectories(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	oldDir := mkdirAged(t, root, uuid.NewString(), 2*time.Hour, now)
	recentDir := mkdirAged(t, root, uuid.NewString(), 10*time.Minute, now)
	strayFile := filepath.Join(root, ".adscribe.lock")
	if err := os.WriteFile(strayFile, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	stamp := now.Add(-3 * time.Hour)
	if err := os.Chtimes(strayFile, stamp, stamp); err != nil {
		t.Fatalf("age file: %v", err)
	}

	result := Sweep(context.Background(), root, time.Hour, now, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("unexpected removals: %v", result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent directory should still exist")
	}
	if _, err := os.Stat(strayFile); err != nil {
		t.Error("top-level files must be left alone")
	}
}

func TestSweepLeavesForeignDirectories(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	foreign := mkdirAged(t, root, "logs", 3*time.Hour, now)
	upper := mkdirAged(t, root, strings.ToUpper(uuid.NewString())+"x", 3*time.Hour, now)
	job := mkdirAged(t, root, uuid.NewString(), 3*time.Hour, now)

	result := Sweep(context.Background(), root, time.Hour, now, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != job {
		t.Fatalf("unexpected removals: %v", result.Removed)
	}
	for _, dir := range []string{foreign, upper} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("foreign directory %s should survive: %v", dir, err)
		}
	}
}

func TestSweepOnceNotifiesHook(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	expired := uuid.NewString()
	mkdirAged(t, root, expired, 90*time.Minute, now)
	mkdirAged(t, root, uuid.NewString(), time.Minute, now)

	var removed []string
	r := New(root, time.Minute, time.Hour, logging.NewNop(),
		WithClock(func() time.Time { return now }),
		WithRemoveHook(func(id string) { removed = append(removed, id) }),
	)
	r.SweepOnce(context.Background())

	if len(removed) != 1 || removed[0] != expired {
		t.Fatalf("hook saw %v, want [%s]", removed, expired)
	}
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	mkdirAged(t, root, uuid.NewString(), 2*time.Hour, now)

	var mu sync.Mutex
	var removed []string
	r := New(root, 20*time.Millisecond, time.Hour, logging.NewNop(),
		WithRemoveHook(func(id string) {
			mu.Lock()
			removed = append(removed, id)
			mu.Unlock()
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(removed)
		mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("reaper did not remove expired workspace")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mkdirAged(t, root, uuid.NewString(), 2*time.Hour, time.Now())
	deadline = time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(removed)
		mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("reaper did not sweep on tick")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	r := New(t.TempDir(), 0, 0, nil)
	if r.interval != DefaultInterval || r.ttl != DefaultTTL {
		t.Fatalf("defaults not applied: %s %s", r.interval, r.ttl)
	}
}
