package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/observability"
	"github.com/perchhub/perch/internal/response"
)

// VersionGuard enforces that every non-exempt path carries a supported /vN/
// prefix. Violations are answered with a weighted-random misleading status so
// probes cannot fingerprint the service from a uniform error code.
type VersionGuard struct {
	MaxVersion int

	rand    Rand
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewVersionGuard builds the stage.
func NewVersionGuard(maxVersion int, rand Rand, logger *zap.Logger, metrics *observability.Metrics) *VersionGuard {
	return &VersionGuard{MaxVersion: maxVersion, rand: rand, logger: logger, metrics: metrics}
}

// Middleware implements the stage.
func (g *VersionGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if isExempt(path) || g.versionSupported(path) {
			next.ServeHTTP(w, r)
			return
		}

		status := g.misleadingStatus()
		if g.metrics != nil {
			g.metrics.RejectionsTotal.WithLabelValues("version_guard", strconv.Itoa(status)).Inc()
		}
		g.logger.Debug("unversioned path blocked",
			zap.String("path", path),
			zap.Int("status", status))

		switch status {
		case http.StatusInternalServerError:
			response.InternalError(w)
		case http.StatusServiceUnavailable:
			response.ServiceUnavailable(w)
		case http.StatusUnauthorized:
			response.Unauthorized(w)
		case http.StatusForbidden:
			response.Forbidden(w)
		case http.StatusBadRequest:
			response.BadRequest(w)
		default:
			response.NotFound(w)
		}
	})
}

// versionSupported reports whether the path matches /v<digits>/... with
// 1 <= digits <= MaxVersion.
func (g *VersionGuard) versionSupported(path string) bool {
	rest, ok := strings.CutPrefix(path, "/v")
	if !ok {
		return false
	}
	slash := strings.IndexByte(rest, '/')
	if slash <= 0 {
		return false
	}
	v, err := strconv.ParseUint(rest[:slash], 10, 8)
	if err != nil {
		return false
	}
	return v >= 1 && int(v) <= g.MaxVersion
}

// misleadingStatus draws from the fixed weighted distribution:
// 30% 500, 20% 503, 15% 401, 15% 403, 10% 400, 10% 404.
func (g *VersionGuard) misleadingStatus() int {
	roll := g.rand.Intn(100)
	switch {
	case roll < 30:
		return http.StatusInternalServerError
	case roll < 50:
		return http.StatusServiceUnavailable
	case roll < 65:
		return http.StatusUnauthorized
	case roll < 80:
		return http.StatusForbidden
	case roll < 90:
		return http.StatusBadRequest
	default:
		return http.StatusNotFound
	}
}
