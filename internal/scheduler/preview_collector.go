package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/banners/internal/logger"
	"github.com/MrSnakeDoc/banners/internal/staging"
)

// DefaultPreviewTTL is how long an abandoned preview is kept.
const DefaultPreviewTTL = time.Hour

// PreviewCollector periodically releases previews nobody released
// explicitly (tab closed mid-edit, session dropped).
type PreviewCollector struct {
	previews *staging.PreviewRegistry
	logger   logger.Logger
	interval time.Duration
	ttl      time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewPreviewCollector(previews *staging.PreviewRegistry, log logger.Logger, interval, ttl time.Duration) *PreviewCollector {
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	if interval <= 0 {
		interval = ttl / 4
	}
	return &PreviewCollector{
		previews: previews,
		logger:   log,
		interval: interval,
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection.
func (pc *PreviewCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(pc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pc.Collect()
			case <-pc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop stops the collector
func (pc *PreviewCollector) Stop() {
	pc.stopOnce.Do(func() { close(pc.stopCh) })
}

// Collect releases every preview older than the TTL and returns how many
// were dropped.
func (pc *PreviewCollector) Collect() int {
	n := pc.previews.ReleaseOlderThan(pc.ttl)
	if n > 0 {
		pc.logger.Info("released abandoned previews",
			logger.Int("released", n),
			logger.Int("remaining", pc.previews.Len()))
	} else {
		pc.logger.Debug("no previews to release")
	}
	return n
}
