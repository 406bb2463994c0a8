package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/banners/internal/identity"
	"github.com/MrSnakeDoc/banners/internal/logger"
)

// DefaultWatchDebounce groups the burst of events an editor produces when
// it saves a file.
const DefaultWatchDebounce = 250 * time.Millisecond

// DirectorySink receives freshly loaded operator directories.
type DirectorySink interface {
	ReplaceDirectory(dir *identity.Directory)
}

// DirectoryReloader reloads the operator directory on a ticker, on file
// changes and on manual trigger.
type DirectoryReloader struct {
	loader        *identity.DirectoryLoader
	sink          DirectorySink
	logger        logger.Logger
	interval      time.Duration
	debounce      time.Duration
	watch         bool
	manualTrigger chan struct{}

	mu         sync.Mutex
	lastReload time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewDirectoryReloader creates a reloader. manualTrigger may be nil.
func NewDirectoryReloader(
	loader *identity.DirectoryLoader,
	sink DirectorySink,
	log logger.Logger,
	interval time.Duration,
	watch bool,
	manualTrigger chan struct{},
) *DirectoryReloader {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &DirectoryReloader{
		loader:        loader,
		sink:          sink,
		logger:        log,
		interval:      interval,
		debounce:      DefaultWatchDebounce,
		watch:         watch,
		manualTrigger: manualTrigger,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins reloading in the background. The directory itself is loaded
// by the caller before Start, so a broken file fails startup there.
func (dr *DirectoryReloader) Start(ctx context.Context) error {
	var watcher *fsnotify.Watcher
	if dr.watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		// Watch the parent: editors and config management replace the file.
		if err := w.Add(filepath.Dir(dr.loader.Path())); err != nil {
			_ = w.Close()
			return fmt.Errorf("failed to watch %s: %w", dr.loader.Path(), err)
		}
		watcher = w
	}

	go dr.loop(ctx, watcher)

	dr.logger.Info("directory reloader started",
		logger.String("file", dr.loader.Path()),
		logger.Duration("interval", dr.interval),
		logger.Bool("watch", watcher != nil))
	return nil
}

func (dr *DirectoryReloader) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(dr.done)

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher != nil {
		defer watcher.Close()
		events, errs = watcher.Events, watcher.Errors
	}

	ticker := time.NewTicker(dr.interval)
	defer ticker.Stop()

	var settle <-chan time.Time
	target := filepath.Clean(dr.loader.Path())

	reload := func(trigger string) {
		if err := dr.Reload(ctx); err != nil {
			dr.logger.Error("failed to reload operator directory",
				logger.String("trigger", trigger),
				logger.Error(err))
		}
	}

	for {
		select {
		case <-ticker.C:
			reload("interval")
		case <-dr.manualTrigger:
			dr.logger.Info("manual reload triggered")
			reload("manual")
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == target && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				settle = time.After(dr.debounce)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			dr.logger.Warn("directory watcher error", logger.Error(err))
		case <-settle:
			settle = nil
			reload("file")
		case <-dr.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the reloader and waits for it to exit.
func (dr *DirectoryReloader) Stop() {
	dr.stopOnce.Do(func() { close(dr.stopCh) })
	<-dr.done
}

// Reload reads the directory file and hands it to the sink. A file that
// fails to load leaves the current directory in place.
func (dr *DirectoryReloader) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := dr.loader.Load()
	if err != nil {
		return err
	}
	dr.sink.ReplaceDirectory(dir)

	dr.mu.Lock()
	dr.lastReload = time.Now()
	dr.mu.Unlock()
	return nil
}

// LastReload returns when the directory was last replaced.
func (dr *DirectoryReloader) LastReload() time.Time {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return dr.lastReload
}
