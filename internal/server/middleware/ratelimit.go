package middleware

import (
	"context"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/config"
	"github.com/perchhub/perch/internal/observability"
	"github.com/perchhub/perch/internal/response"
)

const warningThreshold = 3

// clientWindow is the sliding-window request history for one client address.
// The entry mutex serializes the prune-check-append sequence so concurrent
// requests from the same client cannot both pass when only one should.
type clientWindow struct {
	mu       sync.Mutex
	stamps   []time.Time
	lastSeen time.Time
}

// warningTracker accumulates rate-limit violations for one client until the
// escalation threshold fires or the tracker expires.
type warningTracker struct {
	firstSeen time.Time
	hits      map[string]int
}

// RateLimiter is the per-client, per-path admission throttle with escalating
// warning telemetry and a background eviction sweep.
type RateLimiter struct {
	rules       map[string]config.RuleConfig
	defaultRule config.RuleConfig

	sweepInterval   time.Duration
	idleEviction    time.Duration
	trackerLifetime time.Duration

	mu      sync.Mutex
	clients map[string]*clientWindow

	wmu      sync.Mutex
	warnPool map[string]*warningTracker

	logger  *zap.Logger
	metrics *observability.Metrics

	// Clock is overridable for tests; nil means time.Now.
	Clock func() time.Time
}

// NewRateLimiter builds the limiter from the static rule table.
func NewRateLimiter(cfg config.RateLimitConfig, trackerLifetime time.Duration, logger *zap.Logger, metrics *observability.Metrics) *RateLimiter {
	return &RateLimiter{
		rules:           cfg.Rules,
		defaultRule:     cfg.Default,
		sweepInterval:   cfg.SweepInterval,
		idleEviction:    cfg.IdleEviction,
		trackerLifetime: trackerLifetime,
		clients:         make(map[string]*clientWindow),
		warnPool:        make(map[string]*warningTracker),
		logger:          logger,
		metrics:         metrics,
	}
}

func (rl *RateLimiter) now() time.Time {
	if rl.Clock != nil {
		return rl.Clock()
	}
	return time.Now()
}

func (rl *RateLimiter) rule(path string) config.RuleConfig {
	if r, ok := rl.rules[path]; ok {
		return r
	}
	return rl.defaultRule
}

// Middleware implements the stage.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := clientAddr(r)
		if rl.allow(addr, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if rl.metrics != nil {
			rl.metrics.RejectionsTotal.WithLabelValues("ratelimit", strconv.Itoa(http.StatusTooManyRequests)).Inc()
		}
		response.TooManyRequests(w)
	})
}

// allow runs the window check for one request and updates warning state on
// rejection.
func (rl *RateLimiter) allow(addr, path string) bool {
	rule := rl.rule(path)
	now := rl.now()

	win := rl.window(addr)

	win.mu.Lock()
	win.lastSeen = now

	kept := win.stamps[:0]
	for _, t := range win.stamps {
		if now.Sub(t) < rule.Period {
			kept = append(kept, t)
		}
	}
	win.stamps = kept

	if len(win.stamps) >= rule.Limit {
		win.mu.Unlock()
		rl.logger.Debug("rate limit hit",
			zap.String("client", addr),
			zap.String("path", path))
		rl.recordViolation(addr, path, now)
		return false
	}

	win.stamps = append(win.stamps, now)
	win.mu.Unlock()
	return true
}

func (rl *RateLimiter) window(addr string) *clientWindow {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	win, ok := rl.clients[addr]
	if !ok {
		win = &clientWindow{}
		rl.clients[addr] = win
		if rl.metrics != nil {
			rl.metrics.TrackedClients.Set(float64(len(rl.clients)))
		}
	}
	return win
}

// recordViolation advances the client's warning tracker. Reaching the
// threshold emits exactly one warning event and resets the tracker so a
// later violation starts a fresh count.
func (rl *RateLimiter) recordViolation(addr, path string, now time.Time) {
	rl.wmu.Lock()
	defer rl.wmu.Unlock()

	tracker, ok := rl.warnPool[addr]
	if !ok {
		tracker = &warningTracker{firstSeen: now, hits: make(map[string]int)}
		rl.warnPool[addr] = tracker
	}
	tracker.hits[path]++

	total := 0
	for _, c := range tracker.hits {
		total += c
	}
	if total < warningThreshold {
		return
	}

	fields := []zap.Field{zap.String("client", addr), zap.Int("total_hits", total)}
	paths := make([]string, 0, len(tracker.hits))
	for p := range tracker.hits {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fields = append(fields, zap.Int(p, tracker.hits[p]))
	}
	rl.logger.Warn("client triggered rate limit warning", fields...)

	if rl.metrics != nil {
		rl.metrics.RateLimitWarnings.Inc()
	}
	delete(rl.warnPool, addr)
}

// StartSweep runs the periodic eviction loop until ctx is canceled. It
// evicts client windows idle past the eviction age and warning trackers past
// their lifetime whether or not they escalated.
func (rl *RateLimiter) StartSweep(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(rl.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.sweep()
			}
		}
	}()
}

func (rl *RateLimiter) sweep() {
	now := rl.now()

	rl.mu.Lock()
	for addr, win := range rl.clients {
		win.mu.Lock()
		idle := now.Sub(win.lastSeen) >= rl.idleEviction
		win.mu.Unlock()
		if idle {
			delete(rl.clients, addr)
		}
	}
	if rl.metrics != nil {
		rl.metrics.TrackedClients.Set(float64(len(rl.clients)))
	}
	rl.mu.Unlock()

	rl.wmu.Lock()
	for addr, tracker := range rl.warnPool {
		if now.Sub(tracker.firstSeen) >= rl.trackerLifetime {
			delete(rl.warnPool, addr)
		}
	}
	rl.wmu.Unlock()
}

// clientAddr identifies the client by its connection address, dropping the
// ephemeral port so one host maps to one window.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
