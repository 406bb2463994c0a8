package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/banners/internal/identity"
	"github.com/MrSnakeDoc/banners/internal/logger"
	"github.com/MrSnakeDoc/banners/internal/staging"
)

const oneOperator = `operators:
  - uid: u1
    email: admin@example.com
    password_hash: "$2a$10$abcdefghijklmnopqrstuv"
`

const twoOperators = oneOperator + `  - uid: u2
    email: editor@example.com
    password_hash: "$2a$10$abcdefghijklmnopqrstuv"
`

type sinkRecorder struct {
	mu    sync.Mutex
	count int
	last  *identity.Directory
}

func (s *sinkRecorder) ReplaceDirectory(dir *identity.Directory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	s.last = dir
}

func (s *sinkRecorder) operators() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return 0
	}
	return s.last.Len()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDirectoryReloader_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operators.yaml")
	writeFile(t, path, oneOperator)

	sink := &sinkRecorder{}
	dr := NewDirectoryReloader(identity.NewDirectoryLoader(path), sink, logger.NewNop(), time.Hour, false, nil)

	if err := dr.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := sink.operators(); got != 1 {
		t.Errorf("expected 1 operator, got %d", got)
	}
	if dr.LastReload().IsZero() {
		t.Error("expected LastReload to be set")
	}

	// A broken file keeps the previous directory.
	writeFile(t, path, "operators: [")
	if err := dr.Reload(context.Background()); err == nil {
		t.Fatal("expected an error for invalid yaml")
	}
	if sink.count != 1 {
		t.Errorf("expected the sink to be left alone, got %d replacements", sink.count)
	}
}

func TestDirectoryReloader_ManualTrigger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operators.yaml")
	writeFile(t, path, oneOperator)

	trigger := make(chan struct{}, 1)
	sink := &sinkRecorder{}
	dr := NewDirectoryReloader(identity.NewDirectoryLoader(path), sink, logger.NewNop(), time.Hour, false, trigger)
	if err := dr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer dr.Stop()

	writeFile(t, path, twoOperators)
	trigger <- struct{}{}

	waitFor(t, "manual reload", func() bool { return sink.operators() == 2 })
}

func TestDirectoryReloader_WatchesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operators.yaml")
	writeFile(t, path, oneOperator)

	sink := &sinkRecorder{}
	dr := NewDirectoryReloader(identity.NewDirectoryLoader(path), sink, logger.NewNop(), time.Hour, true, nil)
	dr.debounce = 10 * time.Millisecond
	if err := dr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer dr.Stop()

	writeFile(t, path, twoOperators)

	waitFor(t, "file change reload", func() bool { return sink.operators() == 2 })
}

func TestDirectoryReloader_SignsOutRemovedOperator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operators.yaml")
	writeFile(t, path, twoOperators)

	loader := identity.NewDirectoryLoader(path)
	dir, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	provider := identity.NewLocal(dir, []byte("secret"), time.Hour, logger.NewNop())

	dr := NewDirectoryReloader(loader, provider, logger.NewNop(), time.Hour, false, nil)
	writeFile(t, path, oneOperator)
	if err := dr.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := provider.Operators(); got != 1 {
		t.Errorf("expected 1 operator after reload, got %d", got)
	}
}

func TestPreviewCollector_Collect(t *testing.T) {
	previews := staging.NewPreviewRegistry()
	previews.Create(staging.File{Name: "a.png", ContentType: "image/png"})
	previews.Create(staging.File{Name: "b.png", ContentType: "image/png"})

	pc := NewPreviewCollector(previews, logger.NewNop(), time.Hour, 20*time.Millisecond)

	if n := pc.Collect(); n != 0 {
		t.Errorf("fresh previews must survive, released %d", n)
	}

	time.Sleep(40 * time.Millisecond)
	fresh := previews.Create(staging.File{Name: "c.png", ContentType: "image/png"})

	if n := pc.Collect(); n != 2 {
		t.Errorf("expected 2 released previews, got %d", n)
	}
	if _, ok := previews.Get(fresh); !ok {
		t.Error("preview younger than the TTL was released")
	}
}

func TestPreviewCollector_StopIsIdempotent(t *testing.T) {
	pc := NewPreviewCollector(staging.NewPreviewRegistry(), logger.NewNop(), time.Millisecond, time.Hour)
	if err := pc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	pc.Stop()
	pc.Stop()
}
