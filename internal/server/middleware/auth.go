package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/observability"
	"github.com/perchhub/perch/internal/response"
	"github.com/perchhub/perch/internal/token"
)

// TokenAuthenticator is the innermost gate: it validates the Authorization
// header against the rotating token windows. The root path is always exempt,
// and a development-stage deployment bypasses the gate entirely.
type TokenAuthenticator struct {
	Codec *token.Codec

	// DevBypass disables authentication for every path (development stage).
	DevBypass bool

	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewTokenAuthenticator builds the stage.
func NewTokenAuthenticator(codec *token.Codec, devBypass bool, logger *zap.Logger, metrics *observability.Metrics) *TokenAuthenticator {
	return &TokenAuthenticator{Codec: codec, DevBypass: devBypass, logger: logger, metrics: metrics}
}

// Middleware implements the stage.
func (a *TokenAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.DevBypass || isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			a.reject(w, "missing authorization header", zap.Skip())
			return
		}

		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			// The malformed value is already rejected material, safe to log.
			a.reject(w, "malformed authorization header", zap.String("header", header))
			return
		}

		if !a.Codec.Matches(presented) {
			// Never log the presented or expected token here.
			a.reject(w, "token mismatch", zap.Skip())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *TokenAuthenticator) reject(w http.ResponseWriter, reason string, extra zap.Field) {
	if a.metrics != nil {
		a.metrics.RejectionsTotal.WithLabelValues("auth", strconv.Itoa(http.StatusForbidden)).Inc()
	}
	a.logger.Debug("authentication rejected", zap.String("reason", reason), extra)
	response.Forbidden(w)
}
