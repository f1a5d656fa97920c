// Package monitor implements the host telemetry collectors behind the /v1
// monitor routes. Each collector samples the host on a fixed interval in the
// background and serves API reads from its cache; the refresh loop stops
// itself once no read has arrived within the idle timeout and is restarted
// by the next read.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SampleFunc produces one fresh snapshot of a telemetry source.
type SampleFunc func(ctx context.Context) (interface{}, error)

// Collector caches snapshots from a SampleFunc and manages the background
// refresh loop. base is the process-lifetime context; canceling it stops
// any running loop at shutdown.
type Collector struct {
	name    string
	sample  SampleFunc
	refresh time.Duration
	idle    time.Duration
	logger  *zap.Logger
	base    context.Context

	mu       sync.Mutex
	value    interface{}
	err      error
	lastRead time.Time
	running  bool
}

// NewCollector builds a collector. The refresh loop is not started until
// the first Get.
func NewCollector(base context.Context, name string, refresh, idle time.Duration, logger *zap.Logger, sample SampleFunc) *Collector {
	return &Collector{
		name:    name,
		sample:  sample,
		refresh: refresh,
		idle:    idle,
		logger:  logger,
		base:    base,
	}
}

// Get returns the cached snapshot, sampling synchronously on the first read
// after an idle stop.
func (c *Collector) Get(ctx context.Context) (interface{}, error) {
	c.mu.Lock()
	c.lastRead = time.Now()

	if !c.running {
		c.mu.Unlock()
		value, err := c.sample(ctx)

		c.mu.Lock()
		c.value, c.err = value, err
		if !c.running {
			c.running = true
			go c.loop()
		}
		c.mu.Unlock()
		return value, err
	}

	value, err := c.value, c.err
	c.mu.Unlock()
	return value, err
}

// loop refreshes the cache until the collector has been idle for the
// configured timeout or the base context is canceled at shutdown.
func (c *Collector) loop() {
	ticker := time.NewTicker(c.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-c.base.Done():
			c.stop()
			return
		case <-ticker.C:
			c.mu.Lock()
			idle := time.Since(c.lastRead) >= c.idle
			c.mu.Unlock()
			if idle {
				c.stop()
				c.logger.Debug("collector idle, stopping refresh", zap.String("collector", c.name))
				return
			}

			value, err := c.sample(c.base)
			c.mu.Lock()
			c.value, c.err = value, err
			c.mu.Unlock()
		}
	}
}

func (c *Collector) stop() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}
