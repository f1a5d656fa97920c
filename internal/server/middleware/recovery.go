package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/response"
)

// Recovery converts handler panics into a 500 envelope instead of tearing
// down the connection. It sits inside the admission pipeline, around the
// route handlers only; the admission stages themselves do not panic.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler panic",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", GetRequestID(r.Context())),
						zap.ByteString("stack", debug.Stack()))
					response.InternalError(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
