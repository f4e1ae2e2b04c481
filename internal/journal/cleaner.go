package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CleanerConfig contains retention settings
type CleanerConfig struct {
	MaxAge   time.Duration
	Interval time.Duration
}

// Cleaner periodically removes finished journal entries
type Cleaner struct {
	storage *BoltStorage
	cfg     CleanerConfig
	logger  *slog.Logger
	wg      sync.WaitGroup
	done    chan struct{}
}

// NewCleaner creates a new cleaner service
func NewCleaner(storage *BoltStorage, cfg CleanerConfig, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		storage: storage,
		cfg:     cfg,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start starts the cleanup loop when retention is configured
func (c *Cleaner) Start(ctx context.Context) {
	if c.cfg.MaxAge <= 0 || c.cfg.Interval <= 0 {
		c.logger.Info("journal retention disabled")
		return
	}

	c.wg.Add(1)
	go c.loop(ctx)

	c.logger.Info("cleaner started",
		"max_age", c.cfg.MaxAge,
		"interval", c.cfg.Interval,
	)
}

// Stop stops the cleaner and waits for the loop to finish
func (c *Cleaner) Stop() {
	close(c.done)
	c.wg.Wait()
	c.logger.Info("cleaner stopped")
}

func (c *Cleaner) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

func (c *Cleaner) run(ctx context.Context) {
	deleted, err := c.storage.Cleanup(ctx, c.cfg.MaxAge)
	if err != nil {
		c.logger.Error("failed to cleanup journal", "error", err)
		return
	}

	if deleted > 0 {
		c.logger.Info("cleaned up journal entries", "deleted", deleted)
	}
}
