package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/perchhub/perch/internal/config"
)

func testLimiterConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Default: config.RuleConfig{Period: time.Second, Limit: 3},
		Rules: map[string]config.RuleConfig{
			"/": {Period: time.Second, Limit: 5},
		},
		SweepInterval: 10 * time.Second,
		IdleEviction:  5 * time.Minute,
	}
}

func newTestLimiter(t *testing.T) (*RateLimiter, *observer.ObservedLogs, *time.Time) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	rl := NewRateLimiter(testLimiterConfig(), 30*time.Minute, zap.New(core), nil)

	now := time.Unix(1_700_000_000, 0)
	rl.Clock = func() time.Time { return now }
	return rl, logs, &now
}

func doRequest(rl *RateLimiter, addr, path string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	rl.Middleware(okHandler()).ServeHTTP(rec, req)
	return rec.Code
}

func TestLimitEnforcedPerRule(t *testing.T) {
	rl, _, _ := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(rl, "10.0.0.1:4000", "/v1/monitor/cpu"))
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(rl, "10.0.0.1:4000", "/v1/monitor/cpu"))
}

func TestRootPathUsesSpecificRule(t *testing.T) {
	rl, _, _ := newTestLimiter(t)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(rl, "10.0.0.1:4000", "/"))
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(rl, "10.0.0.1:4000", "/"))
}

func TestWindowSlidesAfterPeriod(t *testing.T) {
	rl, _, now := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doRequest(rl, "10.0.0.1:4000", "/v1/monitor/cpu"))
	}
	require.Equal(t, http.StatusTooManyRequests, doRequest(rl, "10.0.0.1:4000", "/v1/monitor/cpu"))

	*now = now.Add(time.Second + time.Millisecond)
	assert.Equal(t, http.StatusOK, doRequest(rl, "10.0.0.1:4000", "/v1/monitor/cpu"))
}

func TestClientsAreIndependent(t *testing.T) {
	rl, _, _ := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doRequest(rl, "10.0.0.1:4000", "/v1/monitor/cpu"))
	}
	require.Equal(t, http.StatusTooManyRequests, doRequest(rl, "10.0.0.1:4000", "/v1/monitor/cpu"))

	// A different client address has its own window. Ports are ignored.
	assert.Equal(t, http.StatusOK, doRequest(rl, "10.0.0.2:4000", "/v1/monitor/cpu"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(rl, "10.0.0.1:9999", "/v1/monitor/cpu"))
}

func TestWarningEscalationFiresOnceAndResets(t *testing.T) {
	rl, logs, _ := newTestLimiter(t)

	exceed := func(path string) {
		for i := 0; i < 3; i++ {
			doRequest(rl, "10.0.0.9:1", path)
		}
		require.Equal(t, http.StatusTooManyRequests, doRequest(rl, "10.0.0.9:1", path))
	}

	// Hits may be spread across paths; the total triggers escalation.
	exceed("/v1/monitor/cpu")
	rl.sweepClientsForTest()
	exceed("/v1/monitor/memory")
	rl.sweepClientsForTest()
	exceed("/v1/monitor/cpu")

	warns := logs.FilterLevelExact(zap.WarnLevel).All()
	require.Len(t, warns, 1)
	assert.Equal(t, "client triggered rate limit warning", warns[0].Message)

	// The tracker was reset: a fourth violation starts a fresh count.
	rl.sweepClientsForTest()
	exceed("/v1/monitor/cpu")
	assert.Len(t, logs.FilterLevelExact(zap.WarnLevel).All(), 1)
}

// sweepClientsForTest clears the request windows without touching the
// warning pool, isolating escalation behavior from the window limit.
func (rl *RateLimiter) sweepClientsForTest() {
	rl.mu.Lock()
	rl.clients = make(map[string]*clientWindow)
	rl.mu.Unlock()
}

func TestSweepEvictsIdleClientsAndStaleTrackers(t *testing.T) {
	rl, _, now := newTestLimiter(t)

	doRequest(rl, "10.0.0.1:1", "/v1/monitor/cpu")
	for i := 0; i < 4; i++ {
		doRequest(rl, "10.0.0.2:1", "/v1/monitor/cpu")
	}

	rl.mu.Lock()
	require.Len(t, rl.clients, 2)
	rl.mu.Unlock()
	rl.wmu.Lock()
	require.Len(t, rl.warnPool, 1)
	rl.wmu.Unlock()

	*now = now.Add(31 * time.Minute)
	rl.sweep()

	rl.mu.Lock()
	assert.Empty(t, rl.clients)
	rl.mu.Unlock()
	rl.wmu.Lock()
	assert.Empty(t, rl.warnPool)
	rl.wmu.Unlock()
}

func TestConcurrentRequestsFromOneClientCannotOverrun(t *testing.T) {
	rl, _, _ := newTestLimiter(t)

	var passed int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if doRequest(rl, "10.0.0.7:1", "/v1/monitor/cpu") == http.StatusOK {
				atomic.AddInt64(&passed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(3), passed, "exactly the rule limit may pass within one window")
}
