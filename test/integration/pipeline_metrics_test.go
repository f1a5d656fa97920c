package integration

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/config"
	"github.com/perchhub/perch/internal/docker"
	"github.com/perchhub/perch/internal/monitor"
	"github.com/perchhub/perch/internal/observability"
	"github.com/perchhub/perch/internal/server"
	"github.com/perchhub/perch/internal/server/handlers"
	"github.com/perchhub/perch/internal/token"
)

// buildAgent wires a full server with a fresh metrics registry, a seeded
// token codec and a stub telemetry collector.
func buildAgent(t *testing.T) (*server.Server, *observability.Metrics, *token.Codec) {
	t.Helper()

	seedPath := filepath.Join(t.TempDir(), "passwd")
	seeds := make([]byte, token.SeedSize*token.SeedCount)
	for i := range seeds {
		seeds[i] = byte(i * 3)
	}
	require.NoError(t, os.WriteFile(seedPath, seeds, 0o600))

	store := token.NewSeedStore(seedPath)
	require.NoError(t, store.Load())
	codec := token.NewCodec(store)

	cfg := config.Config{
		Security: config.SecurityConfig{
			Stage:           config.StageProduction,
			MaxVersion:      2,
			SelfHostDomain:  "*",
			TrackerLifetime: 30 * time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			Default:       config.RuleConfig{Period: time.Second, Limit: 100},
			SweepInterval: 10 * time.Second,
			IdleEviction:  5 * time.Minute,
		},
	}

	mon := &monitor.Monitor{
		Memory: monitor.NewCollector(context.Background(), "memory", time.Hour, time.Hour, zap.NewNop(),
			func(ctx context.Context) (interface{}, error) {
				return &monitor.MemoryInfo{Total: 1, Unit: "bytes"}, nil
			}),
	}

	metrics := observability.NewMetrics()
	srv := server.New(cfg, zap.NewNop(), metrics, codec, mon,
		docker.NewClient(filepath.Join(t.TempDir(), "absent.sock")),
		handlers.AgentInfo{Name: "perch", Version: "test"})
	return srv, metrics, codec
}

func scrape(t *testing.T, metrics *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestAdmittedRequestsAreCounted(t *testing.T) {
	srv, metrics, codec := buildAgent(t)

	_, curr, err := codec.ValidTokens(time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/monitor/memory", nil)
	req.Header.Set("Authorization", "Bearer "+curr)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := scrape(t, metrics)
	assert.True(t, strings.Contains(body, `perch_requests_total{method="GET",status="200"} 1`),
		"expected admitted request counter in scrape output:\n%s", body)
}

func TestRejectionsAreCountedByStage(t *testing.T) {
	srv, metrics, _ := buildAgent(t)

	// No token: the auth stage should account for the rejection.
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/monitor/memory", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Honeypot path: the deceive stage should account for it.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `stage="auth"`)
	assert.Contains(t, body, `stage="deceive"`)
}
