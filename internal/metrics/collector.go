package metrics

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"
)

// JournalStats contains journal counts for metrics
type JournalStats struct {
	Submitted int64
	Settled   int64
	Reverted  int64
	Rejected  int64
	Abandoned int64
}

// JournalStatsProvider provides journal statistics for metrics
type JournalStatsProvider interface {
	JournalStats(ctx context.Context) (*JournalStats, error)
}

// Collector refreshes system and journal gauges on an interval
type Collector struct {
	metrics     *Metrics
	journal     JournalStatsProvider
	storagePath string
	interval    time.Duration
	startTime   time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCollector creates a new gauge collector
func NewCollector(m *Metrics, journal JournalStatsProvider, storagePath string, interval time.Duration) *Collector {
	if interval == 0 {
		interval = 5 * time.Second
	}

	return &Collector{
		metrics:     m,
		journal:     journal,
		storagePath: storagePath,
		interval:    interval,
		startTime:   time.Now(),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the collector loop
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.loop(ctx)
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Collector) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

// collect refreshes the gauges once
func (c *Collector) collect(ctx context.Context) {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if c.storagePath != "" {
		if info, err := os.Stat(c.storagePath); err == nil {
			c.metrics.StorageUsedBytes.Set(float64(info.Size()))
		}
	}

	if c.journal != nil {
		stats, err := c.journal.JournalStats(ctx)
		if err == nil {
			c.metrics.JournalEntries.WithLabelValues("submitted").Set(float64(stats.Submitted))
			c.metrics.JournalEntries.WithLabelValues("settled").Set(float64(stats.Settled))
			c.metrics.JournalEntries.WithLabelValues("reverted").Set(float64(stats.Reverted))
			c.metrics.JournalEntries.WithLabelValues("rejected").Set(float64(stats.Rejected))
			c.metrics.JournalEntries.WithLabelValues("abandoned").Set(float64(stats.Abandoned))
		}
	}
}
